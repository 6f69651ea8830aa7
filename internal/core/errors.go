package core

import "fmt"

// InvalidStateError reports an operation that is illegal in the current
// lifecycle state, e.g. ending a period that is not open.
type InvalidStateError struct {
	Op     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state for %s: %s", e.Op, e.Reason)
}

// ConflictError reports a write that would violate an invariant, such as
// period non-overlap or the single-active-exception rule. Invariant names the
// violated rule so callers can render a precise message.
type ConflictError struct {
	Invariant string
	Reason    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict with %s: %s", e.Invariant, e.Reason)
}

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an absent person, transaction, period or exception.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
