package errors

import (
	"errors"
	"fmt"
)

// Domain errors. Callers match them with errors.Is; the concrete types below carry
// the details needed to render a message.

var (
	// ErrNotFound indicates an unknown request or session id
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the acting party may not perform the mutation
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition indicates the current status does not satisfy the precondition
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrConflict indicates a concurrent writer changed the record between read and write
	ErrConflict = errors.New("conflict")

	// ErrInvalidSlots indicates malformed proposed slots
	ErrInvalidSlots = errors.New("invalid slots")

	// ErrIndexOutOfRange indicates a slot index outside the proposed slots
	ErrIndexOutOfRange = errors.New("slot index out of range")

	// ErrInvalidURL indicates a malformed meeting link
	ErrInvalidURL = errors.New("invalid url")

	// ErrInvalidState indicates the record is not in a state that allows the mutation
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorage indicates a persistence failure
	ErrStorage = errors.New("storage failure")
)

// TransitionError describes a rejected status transition. A lost race is reported
// with Conflict set; it then matches both ErrConflict and ErrInvalidTransition.
type TransitionError struct {
	Op       string
	ID       string
	Expected string
	Actual   string
	Conflict bool
}

func (e *TransitionError) Error() string {
	if e.Conflict {
		return fmt.Sprintf("%s %s: status changed concurrently (expected %q)", e.Op, e.ID, e.Expected)
	}
	if e.Actual == "" {
		return fmt.Sprintf("%s %s: %q is not a valid source status", e.Op, e.ID, e.Expected)
	}
	return fmt.Sprintf("%s %s: expected status %q, current status is %q", e.Op, e.ID, e.Expected, e.Actual)
}

// Is reports whether target is one of the sentinels this error stands for
func (e *TransitionError) Is(target error) bool {
	switch target {
	case ErrInvalidTransition:
		return true
	case ErrConflict:
		return e.Conflict
	default:
		return false
	}
}

// NotFoundError creates a not found error with context
func NotFoundError(resource, id string) error {
	return fmt.Errorf("%s %s %w", resource, id, ErrNotFound)
}

// ForbiddenError creates a forbidden error with context
func ForbiddenError(reason string) error {
	if reason != "" {
		return fmt.Errorf("%s: %w", reason, ErrForbidden)
	}
	return ErrForbidden
}

// InvalidStateError creates an invalid state error with context
func InvalidStateError(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrInvalidState)
}

// InvalidInputError creates an invalid input error with context
func InvalidInputError(field, reason string) error {
	return fmt.Errorf("%s: %s: %w", field, reason, ErrInvalidInput)
}

// ConflictError marks a lost compare-and-swap on a record
func ConflictError(resource, id string) error {
	return fmt.Errorf("%s %s: %w", resource, id, ErrConflict)
}

// StorageError wraps a persistence error; the cause stays reachable through errors.Is/As
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// Is checks if an error matches a target error (works with wrapped errors)
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
