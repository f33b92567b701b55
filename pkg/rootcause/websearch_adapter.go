package rootcause

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/tools/duckduckgo"
)

// searchTool is the narrow slice of langchaingo's tools.Tool interface a
// web-search backend needs to satisfy.
type searchTool interface {
	Call(ctx context.Context, input string) (string, error)
}

// webSearchProvider adapts a langchaingo search tool to WebSearchProvider,
// splitting its single condensed-text result into the snippet slice the
// analyzer's knowledge-retrieval step expects.
type webSearchProvider struct {
	tool searchTool
}

// NewWebSearchProvider wraps a langchaingo DuckDuckGo tool as a
// WebSearchProvider for step 4 of the Root-Cause Analyzer (spec §4.10),
// so a SYNTAX or TYPE_MISMATCH error with no SharedMemory precedent can
// still be supplemented with a public-web result before synthesis.
func NewWebSearchProvider() (WebSearchProvider, error) {
	tool, err := duckduckgo.New(maxCondensedResults, "oracle-to-mssql-migrator")
	if err != nil {
		return nil, err
	}
	return &webSearchProvider{tool: tool}, nil
}

func (p *webSearchProvider) Search(ctx context.Context, query string) ([]string, error) {
	result, err := p.tool.Call(ctx, query)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimSpace(result), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}
