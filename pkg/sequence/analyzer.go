// Package sequence implements the Sequence Analyzer (spec §4.3) and the
// Identity Converter (§4.4): it correlates Oracle sequences with their
// trigger/procedure/function usage, classifies each trigger as simple-PK or
// not, and assigns each sequence exactly one migration strategy.
package sequence

import (
	"regexp"
	"strings"

	"github.com/oramigrate/oracle-to-mssql/pkg/model"
)

// systemSequencePattern matches Oracle's system-generated sequence names
// (ISEQ$$_%), which are never emitted for migration (spec §4.1, §8).
var systemSequencePattern = regexp.MustCompile(`(?i)^ISEQ\$\$_`)

// IsSystemSequence reports whether a sequence name is a system sequence
// that Discovery must filter out.
func IsSystemSequence(name string) bool {
	return systemSequencePattern.MatchString(name)
}

// Analyzer accumulates per-sequence usage across all scanned PL/SQL bodies
// and, once analysis is complete, assigns each sequence its strategy.
type Analyzer struct {
	sequences map[string]*model.SequenceUsage // keyed by FQName
}

// New constructs an empty Analyzer.
func New() *Analyzer {
	return &Analyzer{sequences: make(map[string]*model.SequenceUsage)}
}

// Register adds a user sequence with its current value (§4.3 step 1).
// System sequences are rejected.
func (a *Analyzer) Register(schema, name string, currentValue int64) {
	if IsSystemSequence(name) {
		return
	}
	key := schema + "." + name
	if _, exists := a.sequences[key]; !exists {
		a.sequences[key] = model.NewSequenceUsage(schema, name, currentValue)
	}
}

// nextvalPattern matches "schema.seq.NEXTVAL" or "seq.NEXTVAL",
// case-insensitive, word-boundary matched.
var nextvalPattern = regexp.MustCompile(`(?i)\b([A-Za-z_][A-Za-z0-9_$#]*)(?:\.([A-Za-z_][A-Za-z0-9_$#]*))?\.NEXTVAL\b`)
var currvalPattern = regexp.MustCompile(`(?i)\b([A-Za-z_][A-Za-z0-9_$#]*)(?:\.([A-Za-z_][A-Za-z0-9_$#]*))?\.CURRVAL\b`)

// ScanBody scans one PL/SQL body for NEXTVAL/CURRVAL references and
// attributes usage to the owning object (and, for triggers, to the owning
// table) (§4.3 step 2). ownerKind is one of "TRIGGER", "PROCEDURE",
// "FUNCTION"; table is only meaningful for triggers.
func (a *Analyzer) ScanBody(defaultSchema, ownerFQName, ownerKind, table, body string) {
	for _, m := range nextvalPattern.FindAllStringSubmatch(body, -1) {
		seqKey := resolveSeqKey(defaultSchema, m, a.sequences)
		usage, ok := a.sequences[seqKey]
		if !ok {
			continue
		}
		usage.NextvalCount++
		a.attributeUsage(usage, ownerFQName, ownerKind, table, body)
	}
	for _, m := range currvalPattern.FindAllStringSubmatch(body, -1) {
		seqKey := resolveSeqKey(defaultSchema, m, a.sequences)
		if usage, ok := a.sequences[seqKey]; ok {
			usage.CurrvalCount++
		}
	}
}

// resolveSeqKey picks the matched sequence's map key: if the match was
// schema-qualified, use schema.seq directly; otherwise search registered
// sequences for one whose name matches, defaulting to defaultSchema.
func resolveSeqKey(defaultSchema string, m []string, known map[string]*model.SequenceUsage) string {
	if m[2] != "" {
		return m[1] + "." + m[2]
	}
	name := m[1]
	if _, ok := known[defaultSchema+"."+name]; ok {
		return defaultSchema + "." + name
	}
	for key := range known {
		if strings.EqualFold(strings.SplitN(key, ".", 2)[1], name) {
			return key
		}
	}
	return defaultSchema + "." + name
}

func (a *Analyzer) attributeUsage(usage *model.SequenceUsage, ownerFQName, ownerKind, table, body string) {
	switch ownerKind {
	case "TRIGGER":
		simple := ClassifyTrigger(body)
		usage.Triggers = append(usage.Triggers, model.TriggerRef{
			Name: ownerFQName, Table: table, IsSimplePK: simple.IsSimplePK,
		})
		if simple.IsSimplePK {
			usage.AssociatedTables[table] = simple.PKColumn
			usage.IsSimplePKTrigger = true
		} else {
			// A non-simple trigger still means the table is
			// associated with this sequence for SHARED_SEQUENCE
			// counting purposes.
			if _, exists := usage.AssociatedTables[table]; !exists {
				usage.AssociatedTables[table] = ""
			}
		}
	case "FUNCTION":
		usage.Functions = append(usage.Functions, ownerFQName)
	default: // PROCEDURE
		usage.Procedures = append(usage.Procedures, ownerFQName)
	}
}

// Finalize assigns a strategy to every registered sequence per the decision
// table in §4.3 step 4 (rules evaluated in order, first match wins), then
// returns all sequences. Once assigned, Strategy is read-only (spec §3).
func (a *Analyzer) Finalize() []*model.SequenceUsage {
	out := make([]*model.SequenceUsage, 0, len(a.sequences))
	for _, usage := range a.sequences {
		usage.Strategy = decideStrategy(usage)
		out = append(out, usage)
	}
	return out
}

func decideStrategy(u *model.SequenceUsage) model.SequenceStrategy {
	nonSimpleTrigger := false
	simplePKTriggers := 0
	for _, tr := range u.Triggers {
		if tr.IsSimplePK {
			simplePKTriggers++
		} else {
			nonSimpleTrigger = true
		}
	}

	hasProcFuncUse := len(u.Procedures) > 0 || len(u.Functions) > 0

	switch {
	case len(u.AssociatedTables) == 1 && simplePKTriggers == 1 && !hasProcFuncUse && !nonSimpleTrigger:
		return model.StrategyIdentityColumn
	case len(u.AssociatedTables) > 1:
		return model.StrategySharedSequence
	case hasProcFuncUse:
		return model.StrategySQLServerSeq
	case u.CurrvalCount > 0:
		return model.StrategyManualReview
	case u.NextvalCount > 0 && nonSimpleTrigger:
		return model.StrategySQLServerSeq
	default:
		return model.StrategyManualReview
	}
}
