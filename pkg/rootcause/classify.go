// Package rootcause implements the Root-Cause Analyzer (spec §4.10): a
// pure, five-step pipeline over a deploy failure that produces a synthesis
// the Translator can condition on when re-translating. The analyzer never
// mutates SharedMemory or any MigratableObject; it only reads.
package rootcause

import (
	"context"
	"regexp"
	"strings"

	"github.com/oramigrate/oracle-to-mssql/pkg/model"
)

// classifyPatterns maps a category to the target-error substrings that
// signal it. Longest/most specific patterns are listed first within a
// category group so a generic phrase doesn't shadow a specific one.
var classifyPatterns = []struct {
	category ErrorCategoryFor
	pattern  *regexp.Regexp
}{
	{model.CategoryObjectExists, regexp.MustCompile(`(?i)there is already an object named`)},
	{model.CategoryObjectExists, regexp.MustCompile(`(?i)already an object named`)},
	{model.CategoryMissingTable, regexp.MustCompile(`(?i)invalid object name '?[^']*'?`)},
	{model.CategoryMissingTable, regexp.MustCompile(`(?i)could not find (the )?table`)},
	{model.CategoryMissingView, regexp.MustCompile(`(?i)could not find (the )?view`)},
	{model.CategoryMissingProcedure, regexp.MustCompile(`(?i)could not find (stored )?procedure`)},
	{model.CategoryMissingFunction, regexp.MustCompile(`(?i)could not find function`)},
	{model.CategoryMissingColumn, regexp.MustCompile(`(?i)invalid column name`)},
	{model.CategoryTypeMismatch, regexp.MustCompile(`(?i)(conversion failed|implicit conversion|type mismatch)`)},
	{model.CategoryIdentityViolation, regexp.MustCompile(`(?i)(identity_insert|cannot insert explicit value for identity)`)},
	{model.CategoryPermission, regexp.MustCompile(`(?i)(permission|access is denied|must be a member)`)},
	{model.CategoryTimeout, regexp.MustCompile(`(?i)(timeout expired|timed out)`)},
	{model.CategoryConnection, regexp.MustCompile(`(?i)(connection (reset|refused|closed)|unable to connect|broken pipe)`)},
	{model.CategoryLOBParameter, regexp.MustCompile(`(?i)(text/ntext/image|string or binary data would be truncated|lob locator)`)},
	{model.CategoryGoBatchSyntax, regexp.MustCompile(`(?i)\bGO\b.*batch`)},
	{model.CategorySyntax, regexp.MustCompile(`(?i)(incorrect syntax near|syntax error)`)},
}

// ErrorCategoryFor aliases model.ErrorCategory for readability within this
// package's classification table.
type ErrorCategoryFor = model.ErrorCategory

// Classifier resolves error text to a category, falling back to an LLM
// classifier when no built-in pattern confidently matches.
type Classifier interface {
	Classify(ctx context.Context, errorText string) (string, error)
}

// classify is step 1: pattern match first, LLM classifier as a fallback,
// UNRESOLVABLE if neither yields a confident category.
func classify(ctx context.Context, errorText string, llm Classifier) (model.ErrorCategory, model.Severity) {
	for _, rule := range classifyPatterns {
		if rule.pattern.MatchString(errorText) {
			return rule.category, severityFor(rule.category)
		}
	}
	if llm != nil {
		if tag, err := llm.Classify(ctx, errorText); err == nil {
			if cat := parseCategory(tag); cat != "" {
				return cat, severityFor(cat)
			}
		}
	}
	return model.CategoryUnresolvable, model.SeverityHigh
}

func parseCategory(tag string) model.ErrorCategory {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	switch model.ErrorCategory(tag) {
	case model.CategorySyntax, model.CategoryMissingTable, model.CategoryMissingView,
		model.CategoryMissingProcedure, model.CategoryMissingFunction, model.CategoryMissingColumn,
		model.CategoryTypeMismatch, model.CategoryObjectExists, model.CategoryIdentityViolation,
		model.CategoryPermission, model.CategoryTimeout, model.CategoryConnection,
		model.CategoryLOBParameter, model.CategoryGoBatchSyntax, model.CategoryUnresolvable:
		return model.ErrorCategory(tag)
	default:
		return ""
	}
}

func severityFor(category model.ErrorCategory) model.Severity {
	switch category {
	case model.CategoryPermission, model.CategoryUnresolvable, model.CategoryGoBatchSyntax:
		return model.SeverityCritical
	case model.CategoryMissingTable, model.CategoryMissingView, model.CategoryMissingProcedure, model.CategoryMissingFunction:
		return model.SeverityHigh
	default:
		return model.SeverityMedium
	}
}
