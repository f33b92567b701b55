package sequence

import "regexp"

// TriggerClassification is the result of classifying one trigger body.
type TriggerClassification struct {
	IsSimplePK bool
	PKColumn   string
}

var (
	beforeInsertForEachRow = regexp.MustCompile(`(?is)BEFORE\s+INSERT\b.*\bFOR\s+EACH\s+ROW\b`)
	assignmentPattern      = regexp.MustCompile(`(?i):NEW\.([A-Za-z_][A-Za-z0-9_$#]*)\s*:=\s*[A-Za-z_][A-Za-z0-9_$#.]*\.NEXTVAL`)
	dmlPattern             = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|MERGE)\b`)
	loopPattern            = regexp.MustCompile(`(?i)\bLOOP\b`)
	whilePattern           = regexp.MustCompile(`(?i)\bWHILE\b`)
	// word-boundary FOR/IF counters — \b ensures "BEFORE" doesn't match
	// "FOR" and "IF" doesn't match inside other identifiers (§4.3 step 3,
	// §8 boundary behaviors).
	forPattern   = regexp.MustCompile(`(?i)\bFOR\b`)
	ifPattern    = regexp.MustCompile(`(?i)\bIF\b`)
	endIfPattern = regexp.MustCompile(`(?i)\bEND\s+IF\b`)
)

// ClassifyTrigger applies the simple-PK trigger rules from §4.3 step 3:
// (a) BEFORE INSERT ... FOR EACH ROW, (b) exactly one
// `:NEW.<col> := <seq>.NEXTVAL` assignment, (c) <=15 body lines, (d) no DML
// other than the assignment, no LOOP, no WHILE, no more than one FOR (the
// FOR EACH ROW), no more than one IF.
func ClassifyTrigger(body string) TriggerClassification {
	header := beforeInsertForEachRow.FindStringIndex(body)
	if header == nil {
		return TriggerClassification{}
	}
	// Everything past the header is the trigger's own logic; the header
	// itself always contains "INSERT" and "FOR", which must not count
	// against the DML/FOR/IF exclusion rules below (§8).
	rest := body[header[1]:]

	assignments := assignmentPattern.FindAllStringSubmatch(rest, -1)
	if len(assignments) != 1 {
		return TriggerClassification{}
	}

	if countLines(body) > 15 {
		return TriggerClassification{}
	}

	// No DML other than the assignment itself: the assignment is not a
	// DML statement, so any INSERT/UPDATE/DELETE/MERGE keyword at all
	// disqualifies the trigger.
	if dmlPattern.MatchString(rest) {
		return TriggerClassification{}
	}
	if loopPattern.MatchString(rest) || whilePattern.MatchString(rest) {
		return TriggerClassification{}
	}
	if len(forPattern.FindAllStringIndex(rest, -1)) > 0 {
		return TriggerClassification{}
	}
	// IF occurrences include their own END IF closing keyword; only the
	// opening IFs count toward the "no more than one" rule.
	ifOpens := len(ifPattern.FindAllStringIndex(rest, -1)) - len(endIfPattern.FindAllStringIndex(rest, -1))
	if ifOpens > 1 {
		return TriggerClassification{}
	}

	return TriggerClassification{IsSimplePK: true, PKColumn: assignments[0][1]}
}

func countLines(body string) int {
	n := 1
	for _, r := range body {
		if r == '\n' {
			n++
		}
	}
	return n
}
