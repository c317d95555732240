package domain

import (
	"errors"
	"fmt"
)

// Failure taxonomy shared by the store, lockers and services. Everything
// surfaced to callers wraps one of these; match with errors.Is/As.
var (
	// ErrNotFound targets a booking id that does not exist.
	ErrNotFound = errors.New("booking not found")

	// ErrInvalidTransition is a lifecycle operation attempted from a
	// state that does not permit it. Cancelled is terminal.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrBookingConflict is a candidate window overlapping an active
	// booking on the same resource.
	ErrBookingConflict = errors.New("booking conflicts with an existing booking")

	// ErrTransientStore is a lock or transaction that could not be
	// acquired or committed. The only retryable failure.
	ErrTransientStore = errors.New("transient store failure")
)

// ValidationError names the request field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
