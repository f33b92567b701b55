package model

import "github.com/go-playground/validator/v10"

// SequenceStrategy is the migration strategy the Sequence Analyzer assigns
// to a SequenceUsage once analysis of all trigger/procedure/function bodies
// is complete (§4.3). Once set it is read-only.
type SequenceStrategy string

const (
	StrategyIdentityColumn   SequenceStrategy = "IDENTITY_COLUMN"
	StrategySQLServerSeq     SequenceStrategy = "SQL_SERVER_SEQUENCE"
	StrategySharedSequence   SequenceStrategy = "SHARED_SEQUENCE"
	StrategyManualReview     SequenceStrategy = "MANUAL_REVIEW"
)

// TriggerRef identifies a trigger on a table that references a sequence.
type TriggerRef struct {
	Schema   string
	Name     string
	Table    string
	IsSimplePK bool
}

// SequenceUsage accumulates everything the Sequence Analyzer observes about
// one Oracle sequence across all scanned PL/SQL bodies.
type SequenceUsage struct {
	Schema       string `validate:"required"`
	Name         string `validate:"required"`
	CurrentValue int64

	Triggers   []TriggerRef
	Procedures []string // fully qualified names of procedures using the sequence
	Functions  []string

	NextvalCount int
	CurrvalCount int

	// AssociatedTables maps fully qualified table name to its PK column,
	// as observed via simple-PK triggers.
	AssociatedTables map[string]string

	IsSimplePKTrigger bool

	Strategy SequenceStrategy
}

// FQName is the fully qualified sequence name.
func (s SequenceUsage) FQName() string {
	return s.Schema + "." + s.Name
}

var sequenceValidator = validator.New()

// Validate reports whether the sequence carries enough identity to plan a
// migration strategy for it. It must pass before Strategy is acted on.
func (s SequenceUsage) Validate() error {
	return sequenceValidator.Struct(s)
}

// NewSequenceUsage registers a sequence with its current value (§4.3 step 1).
func NewSequenceUsage(schema, name string, currentValue int64) *SequenceUsage {
	return &SequenceUsage{
		Schema:           schema,
		Name:             name,
		CurrentValue:     currentValue,
		AssociatedTables: make(map[string]string),
	}
}
