package sequence

import (
	"fmt"
	"regexp"
	"strings"
)

// columnPattern locates a column definition (the column name and its type,
// at the start of a line or right after "(" or ",") inside a CREATE TABLE
// statement so the Identity Converter can inject IDENTITY(start, 1).
func columnPattern(column string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)((?:^|[(,])\s*` + regexp.QuoteMeta(column) + `\s+[A-Za-z0-9_()]+)`)
}

// ApplyIdentity rewrites a table's column definition to add
// IDENTITY(start, 1), where start = currentValue + 1 (spec §4.4). It is
// idempotent-unsafe by design: call it exactly once per table, after the
// Sequence Analyzer has assigned IDENTITY_COLUMN.
func ApplyIdentity(ddl, column string, currentValue int64) string {
	start := currentValue + 1
	pattern := columnPattern(column)
	return pattern.ReplaceAllString(ddl, fmt.Sprintf(`${1} IDENTITY(%d,1)`, start))
}

// IdentityInsertWrap returns the three statements that bracket an identity
// table's data copy (spec §4.4): SET IDENTITY_INSERT ON, run before the bulk
// insert, and SET IDENTITY_INSERT OFF and the DBCC CHECKIDENT reseed, run
// after it. The bulk insert itself is not part of the returned text.
func IdentityInsertWrap(qualifiedTable, idColumn string) (onStmt, offStmt, reseedStmt string) {
	onStmt = fmt.Sprintf("SET IDENTITY_INSERT %s ON;", qualifiedTable)
	offStmt = fmt.Sprintf("SET IDENTITY_INSERT %s OFF;", qualifiedTable)
	reseedStmt = fmt.Sprintf("DBCC CHECKIDENT('%s', RESEED, (SELECT MAX(%s) FROM %s));", qualifiedTable, idColumn, qualifiedTable)
	return
}

// StripSimplePKTrigger reports whether a trigger should be skipped rather
// than translated because its sequence was converted to IDENTITY_COLUMN
// (spec §4.4, §4.15 step 6).
func StripSimplePKTrigger(triggerBody string) bool {
	return ClassifyTrigger(triggerBody).IsSimplePK
}

// RenderSequencePlan produces the per-sequence strategy report persisted to
// `sequence_migration_plan.txt` (spec §6).
func RenderSequencePlan(entries []PlanEntry) string {
	var b strings.Builder
	b.WriteString("Sequence Migration Plan\n")
	b.WriteString("========================\n\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s.%s -> %s\n", e.Schema, e.Name, e.Strategy)
		if e.Detail != "" {
			fmt.Fprintf(&b, "    %s\n", e.Detail)
		}
	}
	return b.String()
}

// PlanEntry is one line of the sequence migration plan report.
type PlanEntry struct {
	Schema   string
	Name     string
	Strategy string
	Detail   string
}
