// Package decompose implements the Package Decomposer (spec §4.6): it
// splits an Oracle package spec+body into standalone PackageUnits, handling
// nested parenthesized parameter types, nested BEGIN/END blocks, overloads,
// private members, and fault-tolerant parsing of malformed input.
//
// Per the design note in spec §9, this does not depend on any PL/SQL
// grammar: it scans for PROCEDURE/FUNCTION keyword occurrences
// (word-bounded, case-insensitive) and adaptively extracts name, parameter
// list (balanced-parenthesis depth), and body (BEGIN/LOOP/CASE/END depth).
package decompose

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oramigrate/oracle-to-mssql/pkg/model"
)

// Note is a manual-intervention note for package-level state that cannot
// be decomposed (types, cursors, initialization blocks) and for members
// with no extractable body. Package-level variables are not detected and
// get no note.
type Note struct {
	Kind    string // "TYPE", "CURSOR", "INITIALIZATION", "DECLARATION_ONLY"
	Text    string
}

// Result is the decomposer's output: the PackageUnits plus any notes.
type Result struct {
	Units []model.PackageUnit
	Notes []Note
}

var memberHeaderPattern = regexp.MustCompile(`(?i)\b(PROCEDURE|FUNCTION)\s+([A-Za-z_][A-Za-z0-9_$#]*)`)

// isAsPattern finds the `IS`/`AS` keyword that opens a member's body; a
// spec-only declaration reaches its `;` before any such keyword.
var isAsPattern = regexp.MustCompile(`(?i)\b(IS|AS)\b`)

// Decompose splits specText and bodyText into PackageUnits. It is
// fault-tolerant: a member whose parameter list or body cannot be
// extracted is still emitted, with an empty body and a DECLARATION_ONLY
// note, and scanning continues with the next member (§4.6).
func Decompose(packageName, specText, bodyText string) Result {
	specMembers := scanMembers(specText, model.VisibilityPublic)
	bodyMembers := scanMembers(bodyText, model.VisibilityPublic)

	// Anything declared in the spec is public; anything only in the body
	// (by member name) is private.
	specNames := make(map[string]bool)
	for _, m := range specMembers {
		specNames[strings.ToUpper(m.name)] = true
	}
	for i := range bodyMembers {
		if !specNames[strings.ToUpper(bodyMembers[i].name)] {
			bodyMembers[i].visibility = model.VisibilityPrivate
		}
	}

	// Merge: prefer the body version (it has the implementation); fall
	// back to spec-only declarations (manual-review note, no body).
	merged := mergeMembers(specMembers, bodyMembers)

	units, notes := assignOverloadsAndBuild(packageName, merged)
	notes = append(notes, extractPackageLevelNotes(specText, bodyText)...)
	rewriteInternalCalls(units)

	return Result{Units: units, Notes: notes}
}

type rawMember struct {
	kind       model.MemberKind
	name       string
	paramsText string
	returnType string
	body       string
	visibility model.Visibility
	hasBody    bool
}

// scanMembers finds every PROCEDURE/FUNCTION occurrence and extracts name,
// parameter list, and (if present) body text.
func scanMembers(text string, defaultVisibility model.Visibility) []rawMember {
	var members []rawMember
	if strings.TrimSpace(text) == "" {
		return members
	}

	matches := memberHeaderPattern.FindAllStringSubmatchIndex(text, -1)
	for _, m := range matches {
		kind := model.MemberProcedure
		if strings.EqualFold(text[m[2]:m[3]], "FUNCTION") {
			kind = model.MemberFunction
		}
		name := text[m[4]:m[5]]

		rest := text[m[1]:]
		paramsText, afterParams := extractParams(rest)

		returnType := ""
		afterReturn := afterParams
		if kind == model.MemberFunction {
			returnType, afterReturn = extractReturnType(afterParams)
		}

		body, hasBody := extractBody(afterReturn)

		members = append(members, rawMember{
			kind: kind, name: name, paramsText: paramsText,
			returnType: returnType, body: body, visibility: defaultVisibility,
			hasBody: hasBody,
		})
	}
	return members
}

// extractParams reads a balanced-parenthesis parameter list starting at
// the first "(" in s, handling nested parens from constrained types like
// VARCHAR2(30) (§4.6 requirement a). Returns ("", s) if there is no
// parameter list (e.g. a niladic function).
func extractParams(s string) (params string, rest string) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	if i >= len(s) || s[i] != '(' {
		return "", s
	}
	depth := 0
	for j := i; j < len(s); j++ {
		switch s[j] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[i+1 : j], s[j+1:]
			}
		}
	}
	return s[i+1:], "" // unterminated: fault-tolerant, take the rest
}

var returnPattern = regexp.MustCompile(`(?is)^\s*RETURN\s+([A-Za-z_][A-Za-z0-9_$#.%]*)`)

func extractReturnType(s string) (retType string, rest string) {
	m := returnPattern.FindStringSubmatchIndex(s)
	if m == nil {
		return "", s
	}
	return s[m[2]:m[3]], s[m[1]:]
}

// extractBody finds IS/AS ... BEGIN ... END; tracking BEGIN/CASE/LOOP/IF
// depth against matching END keywords so nested blocks don't terminate the
// body early (§4.6 requirement b). If there's no IS/AS before the next
// member header or a bare ";" terminates the declaration, this is a
// spec-only declaration with no body.
func extractBody(s string) (body string, hasBody bool) {
	loc := isAsPattern.FindStringIndex(s)
	semiLoc := strings.Index(s, ";")
	if loc == nil || (semiLoc >= 0 && semiLoc < loc[0]) {
		return "", false
	}

	rest := s[loc[1]:]
	beginIdx := regexp.MustCompile(`(?i)\bBEGIN\b`).FindStringIndex(rest)
	if beginIdx == nil {
		return "", false
	}

	depth := 1
	openers := regexp.MustCompile(`(?i)\b(BEGIN|CASE|LOOP|IF)\b`)
	closers := regexp.MustCompile(`(?i)\bEND(\s+(IF|LOOP|CASE))?\b`)

	cursor := beginIdx[1]
	for cursor < len(rest) {
		nextOpen := openers.FindStringIndex(rest[cursor:])
		nextClose := closers.FindStringIndex(rest[cursor:])
		if nextClose == nil {
			break // fault-tolerant: unterminated body, take the rest
		}
		if nextOpen != nil && nextOpen[0] < nextClose[0] {
			depth++
			cursor += nextOpen[1]
			continue
		}
		depth--
		cursor += nextClose[1]
		if depth == 0 {
			return rest[beginIdx[0]:cursor], true
		}
	}
	return rest[beginIdx[0]:], true
}

func mergeMembers(specMembers, bodyMembers []rawMember) []rawMember {
	var merged []rawMember
	used := make(map[int]bool)
	for _, sm := range specMembers {
		found := false
		for i, bm := range bodyMembers {
			if used[i] {
				continue
			}
			if strings.EqualFold(sm.name, bm.name) && sm.kind == bm.kind && sameArity(sm.paramsText, bm.paramsText) {
				merged = append(merged, bm)
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, sm) // spec-only declaration, no body
		}
	}
	for i, bm := range bodyMembers {
		if !used[i] {
			merged = append(merged, bm) // private, body-only member
		}
	}
	return merged
}

func sameArity(a, b string) bool {
	return len(splitParams(a)) == len(splitParams(b))
}

// assignOverloadsAndBuild numbers overloads by order of appearance within
// the same name+kind group (§4.6, §9) and builds PackageUnits.
func assignOverloadsAndBuild(packageName string, members []rawMember) ([]model.PackageUnit, []Note) {
	var notes []Note
	counts := make(map[string]int)
	for _, m := range members {
		counts[groupKey(m)]++
	}

	seen := make(map[string]int)
	units := make([]model.PackageUnit, 0, len(members))
	for _, m := range members {
		key := groupKey(m)
		idx := seen[key]
		seen[key] = idx + 1

		unit := model.PackageUnit{
			PackageName:   packageName,
			MemberName:    m.name,
			OverloadIndex: idx,
			Overloaded:    counts[key] > 1,
			Kind:          m.kind,
			Visibility:    m.visibility,
			Params:        parseParams(m.paramsText),
			ReturnType:    m.returnType,
			Body:          m.body,
		}
		units = append(units, unit)

		if !m.hasBody {
			notes = append(notes, Note{
				Kind: "DECLARATION_ONLY",
				Text: fmt.Sprintf("%s.%s: declared in spec but no body found; manual review required", packageName, m.name),
			})
		}
	}
	return units, notes
}

func groupKey(m rawMember) string {
	return strings.ToUpper(string(m.kind)) + ":" + strings.ToUpper(m.name)
}

func splitParams(paramsText string) []string {
	paramsText = strings.TrimSpace(paramsText)
	if paramsText == "" {
		return nil
	}
	var parts []string
	depth := 0
	last := 0
	for i, r := range paramsText {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, paramsText[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, paramsText[last:])
	return parts
}

var paramPattern = regexp.MustCompile(`(?i)^\s*([A-Za-z_][A-Za-z0-9_$#]*)\s*(IN\s+OUT|IN|OUT)?\s*([A-Za-z_][A-Za-z0-9_$#.%]*(?:\([^)]*\))?)`)

func parseParams(paramsText string) []model.Param {
	var out []model.Param
	for _, p := range splitParams(paramsText) {
		m := paramPattern.FindStringSubmatch(strings.TrimSpace(p))
		if m == nil {
			continue
		}
		dir := model.ParamIn
		switch strings.ToUpper(strings.TrimSpace(m[2])) {
		case "OUT":
			dir = model.ParamOut
		case "IN OUT":
			dir = model.ParamInOut
		}
		out = append(out, model.Param{Name: m[1], Direction: dir, Type: strings.TrimSpace(m[3])})
	}
	return out
}

// cursorPattern and typePattern flag CURSOR and TYPE declarations anywhere
// in the spec or body text — these are reported, not decomposed (§4.6
// requirement f). Package-level variables are not detected.
var cursorPattern = regexp.MustCompile(`(?i)\bCURSOR\s+([A-Za-z_][A-Za-z0-9_$#]*)`)
var typePattern = regexp.MustCompile(`(?i)\bTYPE\s+([A-Za-z_][A-Za-z0-9_$#]*)\s+IS\b`)
var initBlockPattern = regexp.MustCompile(`(?is)\bBEGIN\b[\s\S]*\bEND\s*;\s*$`)

func extractPackageLevelNotes(specText, bodyText string) []Note {
	var notes []Note
	for _, m := range cursorPattern.FindAllStringSubmatch(specText+bodyText, -1) {
		notes = append(notes, Note{Kind: "CURSOR", Text: fmt.Sprintf("package-level cursor %q is not decomposed; manual review required", m[1])})
	}
	for _, m := range typePattern.FindAllStringSubmatch(specText+bodyText, -1) {
		notes = append(notes, Note{Kind: "TYPE", Text: fmt.Sprintf("package-level type %q is not decomposed; manual review required", m[1])})
	}
	// A trailing bare BEGIN...END; block after the last member in the
	// body (not attached to any PROCEDURE/FUNCTION header) is the
	// package's initialization block.
	lastMember := memberHeaderPattern.FindAllStringIndex(bodyText, -1)
	tail := bodyText
	if len(lastMember) > 0 {
		tail = bodyText[lastMember[len(lastMember)-1][1]:]
		_, afterParams := extractParams(tail)
		if memberBody, ok := extractBody(afterParams); ok {
			if i := strings.Index(tail, memberBody); i >= 0 {
				tail = tail[i+len(memberBody):]
			}
		}
	}
	if initBlockPattern.MatchString(tail) {
		notes = append(notes, Note{Kind: "INITIALIZATION", Text: "package initialization block is not decomposed; manual review required"})
	}
	return notes
}

// callPattern matches a bare call to another member by name, e.g.
// "process(x)" or "audit(y, z)".
func callPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\s*\(`)
}

// rewriteInternalCalls rewrites member-to-member calls within the package
// to use the new mangled target names, matching overloads by arity (§4.6
// requirement, spec example 3). Arity is inferred from the argument count
// of the first call to that name in a body, and the first overload with
// that many parameters is chosen (the first overload when none matches).
// Parameter types are not compared, and every call to that name in the
// same body is rewritten to the one chosen target.
func rewriteInternalCalls(units []model.PackageUnit) {
	byName := make(map[string][]int) // upper member name -> indices into units
	for i, u := range units {
		key := strings.ToUpper(u.MemberName)
		byName[key] = append(byName[key], i)
	}

	for i := range units {
		body := units[i].Body
		if body == "" {
			continue
		}
		for name, indices := range byName {
			if len(indices) == 0 {
				continue
			}
			re := callPattern(name)
			if !re.MatchString(body) {
				continue
			}
			target := units[indices[0]]
			if len(indices) > 1 {
				target = resolveOverloadByCallSite(units, indices, body, re)
			}
			units[i].DependsOn = append(units[i].DependsOn, target.TargetName())
			body = re.ReplaceAllString(body, target.TargetName()+"(")
		}
		units[i].Body = body
	}
}

func resolveOverloadByCallSite(units []model.PackageUnit, indices []int, body string, re *regexp.Regexp) model.PackageUnit {
	loc := re.FindStringIndex(body)
	if loc == nil {
		return units[indices[0]]
	}
	_, rest := extractParams(body[loc[1]-1:])
	_ = rest
	argsText, _ := extractParams(body[loc[1]-1:])
	arity := len(splitParams(argsText))
	for _, idx := range indices {
		if len(units[idx].Params) == arity {
			return units[idx]
		}
	}
	return units[indices[0]]
}
