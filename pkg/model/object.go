// Package model holds the data types shared across the migration pipeline:
// the object graph Discovery builds and the Orchestrator drives to
// completion, plus the supporting records (foreign keys, sequence usage,
// package units, error attempts) each component reads and mutates.
package model

import "time"

// Kind enumerates the Oracle object kinds the pipeline can migrate.
type Kind string

const (
	KindTable         Kind = "TABLE"
	KindView          Kind = "VIEW"
	KindSequence      Kind = "SEQUENCE"
	KindProcedure     Kind = "PROCEDURE"
	KindFunction      Kind = "FUNCTION"
	KindTrigger       Kind = "TRIGGER"
	KindPackage       Kind = "PACKAGE"
	KindPackageMember Kind = "PACKAGE_MEMBER"
)

// Status is the lifecycle state of a MigratableObject.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusTranslated Status = "TRANSLATED"
	StatusDeployed   Status = "DEPLOYED"
	StatusFailed     Status = "FAILED"
	StatusSkipped    Status = "SKIPPED"
)

// Identity is the (schema, name, kind) triple that uniquely identifies a
// MigratableObject for the lifetime of a run.
type Identity struct {
	Schema string
	Name   string
	Kind   Kind
}

// FQName renders the identity as "schema.name", the form used for all
// cross-object references in the core.
func (i Identity) FQName() string {
	return i.Schema + "." + i.Name
}

func (i Identity) String() string {
	return string(i.Kind) + ":" + i.FQName()
}

// MigratableObject is the unit of work the Orchestrator schedules. It is
// created during Discovery and mutated in place by the Orchestrator and the
// Repair Controller; it is never destroyed during a run.
type MigratableObject struct {
	Identity Identity

	SourceText string
	TargetText string

	Status Status

	// Dependencies holds fully qualified names this object references.
	Dependencies []string

	ErrorHistory []ErrorAttempt

	// ReviewRequiresChanges is set when the Reviewer's last pass on this
	// object returned approval=requires_changes; it raises diagnostic
	// richness on any subsequent failure (§4.8).
	ReviewRequiresChanges bool

	// RowCount/ByteSize/Valid are lightweight metadata captured at
	// Discovery time; zero values mean "not applicable" (e.g. code
	// objects have no row count).
	RowCount int64
	ByteSize int64
	Valid    bool

	CreatedAt time.Time
}

// NewMigratableObject constructs a PENDING object ready for the pipeline.
func NewMigratableObject(id Identity, sourceText string) *MigratableObject {
	return &MigratableObject{
		Identity:   id,
		SourceText: sourceText,
		Status:     StatusPending,
		CreatedAt:  time.Now(),
	}
}

// AppendError records an attempt into the object's error history. The
// history is append-only and is never discarded, per §7's propagation
// policy.
func (o *MigratableObject) AppendError(a ErrorAttempt) {
	o.ErrorHistory = append(o.ErrorHistory, a)
}
