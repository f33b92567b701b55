package rootcause

import (
	"context"
	"fmt"

	"github.com/oramigrate/oracle-to-mssql/pkg/model"
)

// Confidence is the synthesis step's self-reported confidence in its
// root-cause explanation.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Synthesis is the analyzer's final artifact: what the Translator
// conditions on when re-translating.
type Synthesis struct {
	RootCauseText string
	Confidence    Confidence
	FixStrategy   string
}

// Synthesizer is the opaque LLM collaborator for step 5, implemented by
// pkg/translate/llm.Client via the llmSynthesizer adapter in this package.
type Synthesizer interface {
	Synthesize(ctx context.Context, errorText string, category model.ErrorCategory, severity model.Severity,
		sourceFeatures []SourceFeature, targetExists bool, pastFixes, webResults []string) (Synthesis, error)
}

// synthesize is step 5. Well-known categories with an identified source
// feature get a deterministic, rule-based explanation (fast, free, and
// exactly reproducible); anything else falls back to the LLM synthesizer
// when one is configured, and otherwise degrades to a low-confidence
// generic synthesis so the pipeline never blocks on a missing LLM.
func synthesize(ctx context.Context, category model.ErrorCategory, severity model.Severity, features []SourceFeature,
	target TargetMetadata, knowledge Knowledge, errorText string, llm Synthesizer) Synthesis {

	if s, ok := ruleBasedSynthesis(category, features); ok {
		return s
	}

	if len(knowledge.PastSolutions) > 0 && knowledge.PastSolutions[0].SuccessCount >= 2 {
		best := knowledge.PastSolutions[0]
		return Synthesis{
			RootCauseText: fmt.Sprintf("matches a previously resolved %s error; prior fix: %s", category, best.FixSummary),
			Confidence:    ConfidenceMedium,
			FixStrategy:   best.FixSummary,
		}
	}

	if llm != nil {
		pastFixes := make([]string, 0, len(knowledge.PastSolutions))
		for _, s := range knowledge.PastSolutions {
			pastFixes = append(pastFixes, s.FixSummary)
		}
		if out, err := llm.Synthesize(ctx, errorText, category, severity, features, target.Exists, pastFixes, knowledge.WebResults); err == nil {
			return out
		}
	}

	return Synthesis{
		RootCauseText: fmt.Sprintf("%s error with no confident pattern match; manual review recommended", category),
		Confidence:    ConfidenceLow,
		FixStrategy:   "manual-review",
	}
}

func ruleBasedSynthesis(category model.ErrorCategory, features []SourceFeature) (Synthesis, bool) {
	hasFeature := func(f SourceFeature) bool {
		for _, found := range features {
			if found == f {
				return true
			}
		}
		return false
	}

	switch {
	case category == model.CategorySyntax && hasFeature(FeatureMinus):
		return Synthesis{
			RootCauseText: "source query uses Oracle's MINUS set operator, which has no T-SQL equivalent and must be rewritten as EXCEPT",
			Confidence:    ConfidenceHigh,
			FixStrategy:   "rewrite-minus-as-except",
		}, true
	case category == model.CategorySyntax && hasFeature(FeatureConnectBy):
		return Synthesis{
			RootCauseText: "source query uses a CONNECT BY hierarchical query, which has no direct T-SQL equivalent and needs a recursive CTE",
			Confidence:    ConfidenceHigh,
			FixStrategy:   "rewrite-connect-by-as-recursive-cte",
		}, true
	case category == model.CategorySyntax && hasFeature(FeatureSysdate):
		return Synthesis{
			RootCauseText: "source uses SYSDATE, which must be rewritten to GETDATE() in T-SQL",
			Confidence:    ConfidenceHigh,
			FixStrategy:   "rewrite-sysdate-as-getdate",
		}, true
	case category == model.CategoryIdentityViolation:
		return Synthesis{
			RootCauseText: "an explicit value was inserted into an IDENTITY column without IDENTITY_INSERT enabled",
			Confidence:    ConfidenceHigh,
			FixStrategy:   "wrap-insert-with-identity-insert",
		}, true
	case category == model.CategoryGoBatchSyntax:
		return Synthesis{
			RootCauseText: "a submitted batch still contained a standalone GO separator",
			Confidence:    ConfidenceHigh,
			FixStrategy:   "fix-batch-splitting",
		}, true
	default:
		return Synthesis{}, false
	}
}
