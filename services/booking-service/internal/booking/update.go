package booking

import (
	"context"
	"strings"

	"github.com/agendasalon/agenda/services/booking-service/internal/model"
	"github.com/agendasalon/agenda/services/booking-service/internal/outbox"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// UpdateInput changes an existing appointment. Nil fields are left as they are.
type UpdateInput struct {
	TenantID       int64
	ID             int64
	ProfessionalID *int64
	ServiceID      *int64
	Date           *string
	Time           *string
	Notes          *string
	Price          *decimal.Decimal
}

// Update edits an open appointment. When the slot moves the new slot is
// checked for conflicts, ignoring the appointment itself.
func (s *Service) Update(ctx context.Context, in UpdateInput) (model.Appointment, error) {
	ctx, span := s.startSpan(ctx, "booking.Update",
		attribute.Int64("tenant.id", in.TenantID),
		attribute.Int64("appointment.id", in.ID),
	)
	var out model.Appointment
	var err error
	defer func() {
		s.metrics.Booking("update", outcome(err))
		endSpan(span, err)
	}()

	if in.TenantID <= 0 || in.ID <= 0 {
		err = validationf("tenantId and appointment id are required")
		return model.Appointment{}, err
	}
	if in.Price != nil && in.Price.IsNegative() {
		err = validationf("price must not be negative")
		return model.Appointment{}, err
	}

	err = s.runTx(ctx, "update", func(ctx context.Context, tx Tx) error {
		appt, err := tx.LockAppointment(ctx, in.TenantID, in.ID)
		if err != nil {
			return err
		}
		if appt.Status.Terminal() {
			return ErrInvalidTransition
		}
		before := appt.Key()

		date, clock := appt.Date, appt.Time.String()
		if in.Date != nil {
			date = *in.Date
		}
		if in.Time != nil {
			clock = *in.Time
		}
		if appt.Date, appt.Time, err = parseSlot(date, clock); err != nil {
			return err
		}

		if in.ProfessionalID != nil && *in.ProfessionalID != appt.ProfessionalID {
			prof, err := tx.Professional(ctx, in.TenantID, *in.ProfessionalID)
			if err != nil {
				return err
			}
			if !prof.Eligible() {
				return validationf("professional %d is not available for booking", prof.ID)
			}
			appt.ProfessionalID = prof.ID
		}

		serviceChanged := in.ServiceID != nil && *in.ServiceID != appt.ServiceID
		if serviceChanged {
			appt.ServiceID = *in.ServiceID
		}
		svc, err := tx.Service(ctx, in.TenantID, appt.ServiceID)
		if err != nil {
			return err
		}
		if appt.EndTime, err = endTime(appt.Time, svc.Duration); err != nil {
			return err
		}
		switch {
		case in.Price != nil:
			appt.Price = *in.Price
		case serviceChanged:
			appt.Price = svc.Price
		}
		if in.Notes != nil {
			appt.Notes = strings.TrimSpace(*in.Notes)
		}

		if appt.Key() != before {
			if err := checkFree(ctx, tx, appt.Key(), appt.ID); err != nil {
				return err
			}
		}
		if err := tx.UpdateAppointment(ctx, &appt); err != nil {
			return err
		}
		if err := emit(ctx, tx, outbox.AppointmentUpdated, appt, nil); err != nil {
			return err
		}
		out = appt
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return out, nil
}

type RescheduleInput struct {
	TenantID int64
	ID       int64
	Date     string
	Time     string
	// ProfessionalID moves the booking to another professional; zero keeps the current one.
	ProfessionalID int64
	Notes          *string
	CreatedBy      string
}

type Rescheduled struct {
	Previous    model.Appointment
	Replacement model.Appointment
}

// Reschedule marks the appointment reagendado and books its replacement in
// the same transaction, linking the old row to the new one.
func (s *Service) Reschedule(ctx context.Context, in RescheduleInput) (Rescheduled, error) {
	ctx, span := s.startSpan(ctx, "booking.Reschedule",
		attribute.Int64("tenant.id", in.TenantID),
		attribute.Int64("appointment.id", in.ID),
		attribute.String("appointment.date", in.Date),
		attribute.String("appointment.time", in.Time),
	)
	var out Rescheduled
	var err error
	defer func() {
		s.metrics.Booking("reschedule", outcome(err))
		endSpan(span, err)
	}()

	if in.TenantID <= 0 || in.ID <= 0 {
		err = validationf("tenantId and appointment id are required")
		return Rescheduled{}, err
	}
	date, start, err := parseSlot(in.Date, in.Time)
	if err != nil {
		return Rescheduled{}, err
	}

	err = s.runTx(ctx, "reschedule", func(ctx context.Context, tx Tx) error {
		old, err := tx.LockAppointment(ctx, in.TenantID, in.ID)
		if err != nil {
			return err
		}
		if !ValidTransition(old.Status, model.StatusReschedule) {
			return ErrInvalidTransition
		}

		profID := old.ProfessionalID
		if in.ProfessionalID > 0 && in.ProfessionalID != profID {
			prof, err := tx.Professional(ctx, in.TenantID, in.ProfessionalID)
			if err != nil {
				return err
			}
			if !prof.Eligible() {
				return validationf("professional %d is not available for booking", prof.ID)
			}
			profID = prof.ID
		}
		svc, err := tx.Service(ctx, in.TenantID, old.ServiceID)
		if err != nil {
			return err
		}
		end, err := endTime(start, svc.Duration)
		if err != nil {
			return err
		}

		slot := model.SlotKey{TenantID: in.TenantID, ProfessionalID: profID, Date: date, Time: start}
		if err := checkFree(ctx, tx, slot, old.ID); err != nil {
			return err
		}

		// The old row leaves the active set first so the replacement may reuse its slot.
		previous := old.Status
		old.Status = model.StatusReschedule
		if err := tx.UpdateAppointment(ctx, &old); err != nil {
			return err
		}

		repl := model.Appointment{
			TenantID:       old.TenantID,
			ProfessionalID: profID,
			ServiceID:      old.ServiceID,
			ClientID:       old.ClientID,
			Date:           date,
			Time:           start,
			EndTime:        end,
			Status:         model.StatusScheduled,
			Price:          old.Price,
			Notes:          old.Notes,
			CreatedBy:      in.CreatedBy,
		}
		if in.Notes != nil {
			repl.Notes = strings.TrimSpace(*in.Notes)
		}
		if err := tx.InsertAppointment(ctx, &repl); err != nil {
			return err
		}

		old.ReplacedByID = &repl.ID
		if err := tx.UpdateAppointment(ctx, &old); err != nil {
			return err
		}
		if err := emit(ctx, tx, outbox.AppointmentRescheduled, old, &previous); err != nil {
			return err
		}
		if err := emit(ctx, tx, outbox.AppointmentCreated, repl, nil); err != nil {
			return err
		}
		out = Rescheduled{Previous: old, Replacement: repl}
		return nil
	})
	if err != nil {
		return Rescheduled{}, err
	}
	s.logger.Info("appointment rescheduled",
		"tenant_id", in.TenantID,
		"appointment_id", out.Previous.ID,
		"replacement_id", out.Replacement.ID,
	)
	return out, nil
}
