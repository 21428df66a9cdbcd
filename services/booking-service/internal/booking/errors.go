package booking

import (
	"errors"
	"fmt"

	"github.com/agendasalon/agenda/services/booking-service/internal/schedule"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrTransient marks lock timeouts and serialization failures. Callers may retry.
	ErrTransient = errors.New("temporarily unavailable, please retry")
)

// ConflictError reports the active appointment already holding the requested slot.
type ConflictError struct {
	ID   int64
	Date string
	Time schedule.Clock
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %s %s already taken by appointment %d", e.Date, e.Time, e.ID)
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}
