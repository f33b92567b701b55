// Package repair implements the Repair Controller (spec §4.11): the
// per-object state machine that drives deploy → analyze → re-translate →
// deploy until the object deploys, is queued for the Dependency Manager,
// or is abandoned.
package repair

import "github.com/oramigrate/oracle-to-mssql/pkg/model"

// State is one node of the per-object state machine.
type State string

const (
	StateNew              State = "NEW"
	StateDeploying        State = "DEPLOYING"
	StateDeployed         State = "DEPLOYED"
	StateFailedTransient  State = "FAILED_TRANSIENT"
	StateFailedDependency State = "FAILED_DEPENDENCY"
	StateFailedHard       State = "FAILED_HARD"
	StateAnalyzing        State = "ANALYZING"
	StateTranslating      State = "TRANSLATING"
	StateMemoryUpdate     State = "MEMORY_UPDATE"
	StateDone             State = "DONE"
	StateAbandoned        State = "ABANDONED"
)

// order ranks states so a caller can assert the "never regress" invariant
// (spec §8). States that can be revisited in a retry loop (DEPLOYING,
// ANALYZING, TRANSLATING) share a rank; only the terminal states must never
// be followed by a lower-ranked one.
var order = map[State]int{
	StateNew:              0,
	StateDeploying:        1,
	StateFailedTransient:  1,
	StateAnalyzing:        1,
	StateTranslating:      1,
	StateFailedDependency: 2,
	StateDeployed:         2,
	StateFailedHard:       3,
	StateMemoryUpdate:     3,
	StateAbandoned:        3,
	StateDone:             4,
}

// Regressed reports whether moving from `from` to `to` would violate the
// Repair Controller's monotonic-progress invariant.
func Regressed(from, to State) bool {
	return order[to] < order[from]
}

// Resolution is the user's answer to an OBJECT_EXISTS prompt.
type Resolution string

const (
	ResolutionDrop   Resolution = "DROP"
	ResolutionSkip   Resolution = "SKIP"
	ResolutionAppend Resolution = "APPEND"
	ResolutionAlter  Resolution = "ALTER"

	// ResolutionFail represents FAIL_ON_CONFLICT (spec §9): the object is
	// abandoned immediately, with no Resolver prompt and no retry.
	ResolutionFail Resolution = "FAIL"
)

// DefaultResolution is the safe default applied when the bounded
// user-resolution wait times out (spec §4.11): APPEND for tables, DROP for
// code objects.
func DefaultResolution(kind model.Kind) Resolution {
	if kind == model.KindTable {
		return ResolutionAppend
	}
	return ResolutionDrop
}

// ConflictStrategy mirrors the migration-level conflict_strategy option
// (spec §6) without importing the config package: cmd/migrator converts
// config.ConflictStrategy to this type when constructing the Controller.
type ConflictStrategy string

const (
	ConflictDropAndCreate  ConflictStrategy = "DROP_AND_CREATE"
	ConflictSkipExisting   ConflictStrategy = "SKIP_EXISTING"
	ConflictCreateOrAlter  ConflictStrategy = "CREATE_OR_ALTER"
	ConflictFailOnConflict ConflictStrategy = "FAIL_ON_CONFLICT"
)

// resolutionFor maps a configured ConflictStrategy directly to the
// resolution it stands for, bypassing the Resolver prompt (spec §9: "other
// strategies take the strategy's action silently"). The empty strategy
// (absent from config) returns ok=false so the caller falls through to the
// existing prompt-then-default flow.
func (s ConflictStrategy) resolutionFor(kind model.Kind) (Resolution, bool) {
	switch s {
	case ConflictFailOnConflict:
		return ResolutionFail, true
	case ConflictDropAndCreate:
		return ResolutionDrop, true
	case ConflictSkipExisting:
		return ResolutionSkip, true
	case ConflictCreateOrAlter:
		if kind == model.KindTable {
			return ResolutionAppend, true
		}
		return ResolutionAlter, true
	default:
		return "", false
	}
}
