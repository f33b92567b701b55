package rootcause

import (
	"context"

	"github.com/oramigrate/oracle-to-mssql/pkg/model"
	"github.com/oramigrate/oracle-to-mssql/pkg/translate/llm"
)

// llmSynthesizer adapts *llm.Client to the Synthesizer interface, keeping
// the dependency direction one-way (rootcause → llm only).
type llmSynthesizer struct {
	client *llm.Client
}

// NewLLMSynthesizer wraps an llm.Client as a Synthesizer.
func NewLLMSynthesizer(client *llm.Client) Synthesizer {
	return &llmSynthesizer{client: client}
}

func (s *llmSynthesizer) Synthesize(ctx context.Context, errorText string, category model.ErrorCategory, severity model.Severity,
	sourceFeatures []SourceFeature, targetExists bool, pastFixes, webResults []string) (Synthesis, error) {

	features := make([]string, len(sourceFeatures))
	for i, f := range sourceFeatures {
		features[i] = string(f)
	}

	out, err := s.client.Synthesize(ctx, llm.SynthesisInput{
		ErrorText:      errorText,
		Category:       string(category),
		Severity:       string(severity),
		SourceFeatures: features,
		TargetExists:   targetExists,
		PastFixes:      pastFixes,
		WebResults:     webResults,
	})
	if err != nil {
		return Synthesis{}, err
	}
	return Synthesis{
		RootCauseText: out.RootCauseText,
		Confidence:    Confidence(out.Confidence),
		FixStrategy:   out.FixStrategy,
	}, nil
}

// llmClassifier adapts *llm.Client to the Classifier interface used by
// step 1 when no built-in pattern confidently matches.
type llmClassifier struct {
	client *llm.Client
}

// NewLLMClassifier wraps an llm.Client as a Classifier.
func NewLLMClassifier(client *llm.Client) Classifier {
	return &llmClassifier{client: client}
}

func (c *llmClassifier) Classify(ctx context.Context, errorText string) (string, error) {
	return c.client.Classify(ctx, errorText)
}
