package storage

import (
	"errors"
	"fmt"

	"github.com/agendasalon/agenda/services/booking-service/internal/booking"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// activeSlotIndex is the partial unique index over active appointments.
const activeSlotIndex = "appointments_active_slot_uq"

// transientCodes are SQLSTATEs after which the whole transaction may be retried.
var transientCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57014": true, // query_canceled
}

func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if transientCodes[pgErr.Code] {
			return true
		}
		return IsSlotTaken(err)
	}
	return pgconn.Timeout(err)
}

// IsSlotTaken reports a concurrent insert that lost the race on the active
// slot index. Retrying turns it into a regular conflict.
func IsSlotTaken(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == activeSlotIndex
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func classify(err error) error {
	if err == nil || errors.Is(err, booking.ErrTransient) {
		return err
	}
	if IsTransient(err) {
		return fmt.Errorf("%w: %w", booking.ErrTransient, err)
	}
	return err
}

func notFound(what string, err error) error {
	if IsNotFound(err) {
		return fmt.Errorf("%s %w", what, booking.ErrNotFound)
	}
	return err
}
