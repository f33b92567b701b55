// Package review implements the Reviewer (spec §4.8): a structured quality
// gate over translated T-SQL. It never blocks deployment; a
// requires_changes verdict only raises diagnostic richness on a later
// failure.
package review

import (
	"regexp"
	"strings"

	"github.com/oramigrate/oracle-to-mssql/pkg/targetdb"
)

// Quality is the Reviewer's overall assessment.
type Quality string

const (
	QualityExcellent        Quality = "excellent"
	QualityGood             Quality = "good"
	QualityNeedsImprovement Quality = "needs_improvement"
	QualityPoor             Quality = "poor"
)

// Approval is the Reviewer's gating verdict (informational only).
type Approval string

const (
	ApprovalApproved        Approval = "approved"
	ApprovalRequiresChanges Approval = "requires_changes"
)

// Severity of one lint issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is one finding from the lint pass.
type Issue struct {
	Severity    Severity
	Description string
}

// Result is the Reviewer's structured output.
type Result struct {
	OverallQuality Quality
	Approval       Approval
	Issues         []Issue
}

var (
	oracleLeftoverTokens = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bVARCHAR2\b`),
		regexp.MustCompile(`(?i)\bNUMBER\b`),
		regexp.MustCompile(`(?i)\bSYSDATE\b`),
		regexp.MustCompile(`(?i)\bNVL\s*\(`),
		regexp.MustCompile(`(?i)\bROWNUM\b`),
		regexp.MustCompile(`(?i)\bDUAL\b`),
		regexp.MustCompile(`(?i)\bMINUS\b`),
		regexp.MustCompile(`(?i):=`),
	}
	bindVarPattern = regexp.MustCompile(`(?i)\bCONNECT\s+BY\b`)
)

// Review lints translated T-SQL and produces a Result (§4.8). It never
// errors: a lint pass that finds nothing wrong returns an approved,
// excellent-quality result.
func Review(targetText string) Result {
	var issues []Issue

	for _, pattern := range oracleLeftoverTokens {
		if pattern.MatchString(targetText) {
			issues = append(issues, Issue{
				Severity:    SeverityError,
				Description: "leftover Oracle-specific token: " + pattern.String(),
			})
		}
	}
	if bindVarPattern.MatchString(targetText) {
		issues = append(issues, Issue{Severity: SeverityError, Description: "hierarchical query (CONNECT BY) has no direct T-SQL equivalent"})
	}
	if targetdb.ContainsStandaloneGo(targetText) {
		issues = append(issues, Issue{Severity: SeverityWarning, Description: "translated text already contains a standalone GO separator"})
	}
	if strings.TrimSpace(targetText) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Description: "translated text is empty"})
	}

	return Result{
		OverallQuality: quality(issues),
		Approval:       approval(issues),
		Issues:         issues,
	}
}

func quality(issues []Issue) Quality {
	errCount, warnCount := 0, 0
	for _, i := range issues {
		switch i.Severity {
		case SeverityError:
			errCount++
		case SeverityWarning:
			warnCount++
		}
	}
	switch {
	case errCount > 1:
		return QualityPoor
	case errCount == 1:
		return QualityNeedsImprovement
	case warnCount > 0:
		return QualityGood
	default:
		return QualityExcellent
	}
}

func approval(issues []Issue) Approval {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return ApprovalRequiresChanges
		}
	}
	return ApprovalApproved
}
