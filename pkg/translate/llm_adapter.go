package translate

import (
	"context"

	"github.com/oramigrate/oracle-to-mssql/pkg/model"
	"github.com/oramigrate/oracle-to-mssql/pkg/translate/llm"
)

// llmBackend adapts *llm.Client to the Backend interface, translating
// between this package's RepairContext and llm's RepairContextView so the
// llm package doesn't need to import translate (avoiding a cycle).
type llmBackend struct {
	client *llm.Client
}

// NewLLMBackend wraps an llm.Client as a Backend.
func NewLLMBackend(client *llm.Client) Backend {
	return &llmBackend{client: client}
}

func (b *llmBackend) Name() string { return b.client.Name() }

func (b *llmBackend) Translate(ctx context.Context, sourceText, objectName string, kind model.Kind, repair *RepairContext) (string, error) {
	var view *llm.RepairContextView
	if repair != nil {
		view = &llm.RepairContextView{RootCause: repair.RootCause, FixStrategy: repair.FixStrategy}
		for _, a := range repair.ErrorHistory {
			view.ErrorTexts = append(view.ErrorTexts, a.ErrorText)
		}
	}
	return b.client.Translate(ctx, sourceText, objectName, kind, view)
}
