package booking

import (
	"context"

	"github.com/agendasalon/agenda/services/booking-service/internal/model"
	"github.com/agendasalon/agenda/services/booking-service/internal/outbox"
	"go.opentelemetry.io/otel/attribute"
)

// UpdateStatus moves an appointment through its lifecycle. Setting the
// current status again is a no-op. Completing an appointment bumps the
// client's visit counters in the same transaction.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, id int64, status model.Status) (model.Appointment, error) {
	ctx, span := s.startSpan(ctx, "booking.UpdateStatus",
		attribute.Int64("tenant.id", tenantID),
		attribute.Int64("appointment.id", id),
		attribute.String("appointment.status", string(status)),
	)
	var out model.Appointment
	var err error
	defer func() {
		s.metrics.Booking("status", outcome(err))
		endSpan(span, err)
	}()

	if tenantID <= 0 || id <= 0 {
		err = validationf("tenantId and appointment id are required")
		return model.Appointment{}, err
	}
	if !status.Valid() {
		err = validationf("unknown status %q", status)
		return model.Appointment{}, err
	}

	err = s.runTx(ctx, "status", func(ctx context.Context, tx Tx) error {
		appt, err := tx.LockAppointment(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if appt.Status == status {
			out = appt
			return nil
		}
		if !ValidTransition(appt.Status, status) {
			return ErrInvalidTransition
		}

		previous := appt.Status
		appt.Status = status
		if err := tx.UpdateAppointment(ctx, &appt); err != nil {
			return err
		}
		if status == model.StatusCompleted {
			if err := tx.RecordVisit(ctx, tenantID, appt.ClientID, s.cfg.Now()); err != nil {
				return err
			}
		}
		if err := emit(ctx, tx, outbox.AppointmentStatusChanged, appt, &previous); err != nil {
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

func (s *Service) Cancel(ctx context.Context, tenantID, id int64) (model.Appointment, error) {
	return s.UpdateStatus(ctx, tenantID, id, model.StatusCanceled)
}
