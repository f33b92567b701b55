package rootcause

import (
	"context"
	"testing"

	"github.com/oramigrate/oracle-to-mssql/pkg/model"
)

func TestAnalyze_MinusSyntaxError(t *testing.T) {
	report := Analyze(context.Background(), Input{
		Identity:   model.Identity{Schema: "dbo", Name: "V_ACTIVE", Kind: model.KindView},
		SourceText: "SELECT a FROM t1 MINUS SELECT a FROM t2",
		ErrorText:  "Incorrect syntax near 'MINUS'.",
	})

	if report.Category != model.CategorySyntax {
		t.Fatalf("expected SYNTAX, got %s", report.Category)
	}
	if !containsFeature(report.SourceFeatures, FeatureMinus) {
		t.Fatalf("expected MINUS feature detected, got %v", report.SourceFeatures)
	}
	if report.Synthesis.FixStrategy != "rewrite-minus-as-except" {
		t.Errorf("expected rule-based MINUS fix strategy, got %q", report.Synthesis.FixStrategy)
	}
	if report.Synthesis.Confidence != ConfidenceHigh {
		t.Errorf("expected high confidence for known pattern, got %s", report.Synthesis.Confidence)
	}
}

func TestAnalyze_MissingTableIsDependencyCategory(t *testing.T) {
	report := Analyze(context.Background(), Input{
		Identity:   model.Identity{Schema: "dbo", Name: "EMPLOYEES", Kind: model.KindTable},
		SourceText: "CREATE TABLE ...",
		ErrorText:  "Invalid object name 'dbo.DEPARTMENTS'.",
	})

	if report.Category != model.CategoryMissingTable {
		t.Fatalf("expected MISSING_TABLE, got %s", report.Category)
	}
	if report.Category.Classify() != model.FailureDependency {
		t.Errorf("expected MISSING_TABLE to classify as DEPENDENCY, got %s", report.Category.Classify())
	}
}

func TestAnalyze_UnresolvableWithNoMatch(t *testing.T) {
	report := Analyze(context.Background(), Input{
		Identity:  model.Identity{Schema: "dbo", Name: "X", Kind: model.KindProcedure},
		ErrorText: "some completely unrecognized driver failure blob",
	})
	if report.Category != model.CategoryUnresolvable {
		t.Fatalf("expected UNRESOLVABLE fallback, got %s", report.Category)
	}
	if report.Synthesis.Confidence != ConfidenceLow {
		t.Errorf("expected low confidence with no pattern/knowledge/llm, got %s", report.Synthesis.Confidence)
	}
}

func TestAnalyze_KnowledgeStoreSuppliesMediumConfidencePastFix(t *testing.T) {
	store := stubStore{solutions: []RankedSolution{
		{ErrorSignature: "sig", FixSummary: "retry-after-dependency-wait", SuccessCount: 4},
	}}
	report := Analyze(context.Background(), Input{
		Identity:  model.Identity{Schema: "dbo", Name: "X", Kind: model.KindProcedure},
		ErrorText: "Could not find stored procedure 'dbo.HELPER'.",
		Memory:    store,
	})
	if report.Synthesis.FixStrategy != "retry-after-dependency-wait" {
		t.Errorf("expected past-fix strategy surfaced, got %q", report.Synthesis.FixStrategy)
	}
	if report.Synthesis.Confidence != ConfidenceMedium {
		t.Errorf("expected medium confidence for a repeated past fix, got %s", report.Synthesis.Confidence)
	}
}

func TestNormalizeSignature_CollapsesNumbersAndLiterals(t *testing.T) {
	a := normalizeSignature("Invalid column name 'FOO_123' at line 42.")
	b := normalizeSignature("Invalid column name 'BAR_987' at line 7.")
	if a != b {
		t.Errorf("expected normalized signatures to match regardless of identifier/number, got %q vs %q", a, b)
	}
}

type stubStore struct{ solutions []RankedSolution }

func (s stubStore) RankedSolutions(signature string) []RankedSolution { return s.solutions }

func containsFeature(features []SourceFeature, target SourceFeature) bool {
	for _, f := range features {
		if f == target {
			return true
		}
	}
	return false
}
