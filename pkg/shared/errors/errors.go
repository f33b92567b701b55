// Package errors provides the wrapped-error shape every component uses to
// surface a structured failure to the orchestrator (spec §7): narrow catch,
// wrap with operation/component/resource context, never use exceptions-style
// control flow for normal outcomes.
package errors

import "fmt"

// OperationError wraps a failure with the context needed to act on it:
// which operation was attempted, which component attempted it, and which
// resource (object identity, table, FK name, ...) it concerned.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

func (e *OperationError) Error() string {
	msg := "failed to " + e.Operation
	if e.Component != "" {
		msg += ", component: " + e.Component
	}
	if e.Resource != "" {
		msg += ", resource: " + e.Resource
	}
	if e.Cause != nil {
		msg += ", cause: " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FailedTo is a terse constructor for the common case of no component or
// resource context.
func FailedTo(action string, cause error) error {
	return fmt.Errorf("failed to %s: %w", action, cause)
}

// Wrap attaches component/resource context to an error produced by a
// pipeline component.
func Wrap(operation, component, resource string, cause error) error {
	if cause == nil {
		return nil
	}
	return &OperationError{Operation: operation, Component: component, Resource: resource, Cause: cause}
}
