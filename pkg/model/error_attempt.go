package model

import (
	"time"

	"github.com/google/uuid"
)

// ErrorCategory is the taxonomy the Root-Cause Analyzer classifies target
// error text into (spec §7).
type ErrorCategory string

const (
	CategorySyntax             ErrorCategory = "SYNTAX"
	CategoryMissingTable       ErrorCategory = "MISSING_TABLE"
	CategoryMissingView        ErrorCategory = "MISSING_VIEW"
	CategoryMissingProcedure   ErrorCategory = "MISSING_PROCEDURE"
	CategoryMissingFunction    ErrorCategory = "MISSING_FUNCTION"
	CategoryMissingColumn      ErrorCategory = "MISSING_COLUMN"
	CategoryTypeMismatch       ErrorCategory = "TYPE_MISMATCH"
	CategoryObjectExists       ErrorCategory = "OBJECT_EXISTS"
	CategoryIdentityViolation  ErrorCategory = "IDENTITY_VIOLATION"
	CategoryPermission         ErrorCategory = "PERMISSION"
	CategoryTimeout            ErrorCategory = "TIMEOUT"
	CategoryConnection         ErrorCategory = "CONNECTION"
	CategoryLOBParameter       ErrorCategory = "LOB_PARAMETER"
	CategoryGoBatchSyntax      ErrorCategory = "GO_BATCH_SYNTAX"
	CategoryUnresolvable       ErrorCategory = "UNRESOLVABLE"
)

// Severity ranks how urgently a classified error needs attention.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// FailureClass buckets an ErrorCategory into the Repair Controller's three
// outcomes (§4.11).
type FailureClass string

const (
	FailureTransient  FailureClass = "TRANSIENT"
	FailureDependency FailureClass = "DEPENDENCY"
	FailureHard       FailureClass = "HARD"
)

var transientCategories = map[ErrorCategory]bool{
	CategorySyntax:            true,
	CategoryMissingColumn:     true,
	CategoryTypeMismatch:      true,
	CategoryObjectExists:      true,
	CategoryIdentityViolation: true,
	CategoryTimeout:           true,
	CategoryConnection:        true,
	CategoryLOBParameter:      true,
}

var dependencyCategories = map[ErrorCategory]bool{
	CategoryMissingTable:     true,
	CategoryMissingView:      true,
	CategoryMissingProcedure: true,
	CategoryMissingFunction:  true,
}

var hardCategories = map[ErrorCategory]bool{
	CategoryPermission:    true,
	CategoryUnresolvable:  true,
	CategoryGoBatchSyntax: true,
}

// Classify maps an ErrorCategory onto the Repair Controller's failure
// class. An unrecognized or "one more retry than allowed" category is hard
// by default — see repair.InvalidSyntaxAfterRetryLimit for that case.
func (c ErrorCategory) Classify() FailureClass {
	switch {
	case transientCategories[c]:
		return FailureTransient
	case dependencyCategories[c]:
		return FailureDependency
	case hardCategories[c]:
		return FailureHard
	default:
		return FailureHard
	}
}

// ErrorAttempt is one entry in a MigratableObject's error history.
type ErrorAttempt struct {
	// ID uniquely identifies this attempt across the run, independent of
	// AttemptIndex, so SharedMemory and the migration_results.json
	// artifact can cross-reference a specific failure without relying on
	// (object, index) pairs staying stable across re-runs.
	ID             string
	AttemptIndex   int
	ErrorText      string
	Category       ErrorCategory
	Severity       Severity
	CodeAttempted  string
	Timestamp      time.Time
	ContextSources []string
}

// NewErrorAttemptID generates a fresh identifier for an ErrorAttempt.
func NewErrorAttemptID() string {
	return uuid.NewString()
}
