/*
errors.go - Centralized error types for the incapacity engine

ERROR CATEGORIES:
  1. Not found     - missing incapacity, predecessor, or absence request
  2. Invalid state - transition requested from a state that doesn't allow it
  3. Validation    - bad input, rejected before any persistence attempt
  4. Persistence   - the store rejected a write
  5. Concurrency   - stale version on a conditional update

Callers match with errors.Is / errors.As; structured types carry the
context needed for useful messages.
*/
package incapacity

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced incapacity, predecessor,
	// or absence request does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidState is returned when a transition is requested from a
	// terminal state or from a state that does not precede it.
	ErrInvalidState = errors.New("invalid state for transition")

	// ErrValidation is returned for bad input, before any persistence.
	ErrValidation = errors.New("validation failed")

	// ErrConcurrentModification is returned when a conditional update
	// detects that the record changed since it was read.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrAlreadyConverted is returned when converting an absence request
	// that is already linked to an incapacity.
	ErrAlreadyConverted = errors.New("absence request already converted")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies what was missing.
type NotFoundError struct {
	Kind string // "incapacity", "predecessor", "absence request"
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidStateError describes a rejected transition.
type InvalidStateError struct {
	ID        int64
	Current   Status
	Requested string // the operation, e.g. "register collection"
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s incapacity %d in state %q", e.Requested, e.ID, e.Current)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err indicates a missing record.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsClientError reports whether the error is the caller's fault
// (as opposed to a persistence failure).
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrAlreadyConverted)
}
