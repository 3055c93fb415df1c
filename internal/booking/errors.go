package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotConflict means the slot filled between the client's read and
	// its write. Transient: the caller should re-fetch availability and
	// pick again, never blindly resubmit the same slot.
	ErrSlotConflict = errors.New("slot capacity exhausted")

	// ErrInvalidTransition is a lifecycle violation, such as reopening a
	// cancelled booking. It is a caller bug, not user input.
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrServiceNotFound = errors.New("service not found")
	ErrBookingNotFound = errors.New("booking not found")
)

// ValidationError names the request field that failed a precondition.
// Nothing is written when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
