package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/agendasalon/agenda/services/booking-service/internal/availability"
	"github.com/agendasalon/agenda/services/booking-service/internal/metrics"
	"github.com/agendasalon/agenda/services/booking-service/internal/model"
	"github.com/agendasalon/agenda/services/booking-service/internal/outbox"
	"github.com/agendasalon/agenda/services/booking-service/internal/schedule"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTxTimeout = 5 * time.Second
	maxTxAttempts    = 2
)

type Config struct {
	// TxTimeout bounds each transaction attempt, lock waits and commit included.
	TxTimeout time.Duration
	// Location is used for tenants without a valid timezone.
	Location *time.Location
	Policy   availability.ProfessionalPolicy
	Now      func() time.Time
}

type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	cfg     Config
}

func NewService(store Store, logger *slog.Logger, m *metrics.Metrics, cfg Config) *Service {
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = defaultTxTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Policy == nil {
		cfg.Policy = availability.FirstEligible
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		store:   store,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("github.com/agendasalon/agenda/services/booking-service/internal/booking"),
		cfg:     cfg,
	}
}

// runTx runs fn in a store transaction, retrying once when the store reports a
// transient failure. Each attempt gets its own deadline; running out of it
// counts as transient too.
func (s *Service) runTx(ctx context.Context, op string, fn func(ctx context.Context, tx Tx) error) error {
	start := time.Now()
	defer func() { s.metrics.TxDuration(op, time.Since(start)) }()

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.attempt(ctx, fn)
		if err == nil || !errors.Is(err, ErrTransient) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt < maxTxAttempts {
			s.metrics.TxRetry(op)
			s.logger.Warn("booking transaction retry", "operation", op, "attempt", attempt, "err", err)
		}
	}
	return err
}

func (s *Service) attempt(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	actx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()

	err := s.store.InTx(actx, fn)
	if err != nil && !errors.Is(err, ErrTransient) && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: transaction timed out: %w", ErrTransient, err)
	}
	return err
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		var conflict *ConflictError
		if !errors.As(err, &conflict) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

func outcome(err error) string {
	var conflict *ConflictError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &conflict):
		return "conflict"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "error"
	}
}

func (s *Service) location(t model.Tenant) *time.Location {
	if t.Timezone != "" {
		if loc, err := time.LoadLocation(t.Timezone); err == nil {
			return loc
		}
	}
	return s.cfg.Location
}

type CreateInput struct {
	TenantID       int64
	ProfessionalID int64
	ServiceID      int64
	ClientID       int64
	// Client books a walk-in when ClientID is zero.
	Client         *WalkIn
	Date           string
	Time           string
	Notes          string
	Price          *decimal.Decimal
	IdempotencyKey string
	CreatedBy      string
}

func (in CreateInput) validate() (string, schedule.Clock, error) {
	if in.TenantID <= 0 {
		return "", 0, validationf("tenantId is required")
	}
	if in.ProfessionalID <= 0 {
		return "", 0, validationf("professionalId is required")
	}
	if in.ServiceID <= 0 {
		return "", 0, validationf("serviceId is required")
	}
	if in.ClientID <= 0 && (in.Client == nil || strings.TrimSpace(in.Client.Name) == "") {
		return "", 0, validationf("clientId or client name is required")
	}
	if in.Price != nil && in.Price.IsNegative() {
		return "", 0, validationf("price must not be negative")
	}
	return parseSlot(in.Date, in.Time)
}

func parseSlot(date, clock string) (string, schedule.Clock, error) {
	d, err := schedule.ParseDate(date, time.UTC)
	if err != nil {
		return "", 0, validationf("date must be YYYY-MM-DD")
	}
	t, err := schedule.ParseClock(clock)
	if err != nil {
		return "", 0, validationf("time must be HH:MM")
	}
	return d.Format(schedule.DateLayout), t, nil
}

func endTime(start schedule.Clock, duration int) (schedule.Clock, error) {
	if duration <= 0 {
		duration = availability.DefaultDuration
	}
	end := start.Add(duration)
	if end > schedule.EndOfDay {
		return 0, validationf("appointment would end after midnight")
	}
	return end, nil
}

// Create books a new appointment. It is the only path that inserts appointments.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Appointment, error) {
	ctx, span := s.startSpan(ctx, "booking.Create",
		attribute.Int64("tenant.id", in.TenantID),
		attribute.Int64("professional.id", in.ProfessionalID),
		attribute.String("appointment.date", in.Date),
		attribute.String("appointment.time", in.Time),
	)
	var out model.Appointment
	var err error
	defer func() {
		s.metrics.Booking("create", outcome(err))
		endSpan(span, err)
	}()

	date, start, err := in.validate()
	if err != nil {
		return model.Appointment{}, err
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	replayed := false

	err = s.runTx(ctx, "create", func(ctx context.Context, tx Tx) error {
		if key != "" {
			id, found, err := tx.ClaimIdempotencyKey(ctx, in.TenantID, key)
			if err != nil {
				return err
			}
			if found {
				replayed = true
				out, err = tx.LockAppointment(ctx, in.TenantID, id)
				return err
			}
			replayed = false
		}

		prof, err := tx.Professional(ctx, in.TenantID, in.ProfessionalID)
		if err != nil {
			return err
		}
		if !prof.Eligible() {
			return validationf("professional %d is not available for booking", prof.ID)
		}
		svc, err := tx.Service(ctx, in.TenantID, in.ServiceID)
		if err != nil {
			return err
		}
		end, err := endTime(start, svc.Duration)
		if err != nil {
			return err
		}
		clientID, err := s.resolveClient(ctx, tx, in)
		if err != nil {
			return err
		}

		slot := model.SlotKey{TenantID: in.TenantID, ProfessionalID: prof.ID, Date: date, Time: start}
		if err := checkFree(ctx, tx, slot, 0); err != nil {
			return err
		}

		appt := model.Appointment{
			TenantID:       in.TenantID,
			ProfessionalID: prof.ID,
			ServiceID:      svc.ID,
			ClientID:       clientID,
			Date:           date,
			Time:           start,
			EndTime:        end,
			Status:         model.StatusScheduled,
			Price:          svc.Price,
			Notes:          strings.TrimSpace(in.Notes),
			CreatedBy:      in.CreatedBy,
		}
		if in.Price != nil {
			appt.Price = *in.Price
		}
		if err := tx.InsertAppointment(ctx, &appt); err != nil {
			return err
		}
		if key != "" {
			if err := tx.SaveIdempotencyKey(ctx, in.TenantID, key, appt.ID); err != nil {
				return err
			}
		}
		if err := emit(ctx, tx, outbox.AppointmentCreated, appt, nil); err != nil {
			return err
		}
		out = appt
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	if replayed {
		s.logger.Info("idempotent booking replayed", "tenant_id", out.TenantID, "appointment_id", out.ID)
		return out, nil
	}
	s.logger.Info("appointment booked",
		"tenant_id", out.TenantID,
		"appointment_id", out.ID,
		"professional_id", out.ProfessionalID,
		"date", out.Date,
		"time", out.Time.String(),
	)
	return out, nil
}

func (s *Service) resolveClient(ctx context.Context, tx Tx, in CreateInput) (int64, error) {
	if in.ClientID > 0 {
		ok, err := tx.ClientExists(ctx, in.TenantID, in.ClientID)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, notFound("client")
		}
		return in.ClientID, nil
	}
	walkIn := WalkIn{
		Name:  strings.TrimSpace(in.Client.Name),
		Phone: strings.TrimSpace(in.Client.Phone),
		Email: strings.TrimSpace(in.Client.Email),
	}
	return tx.FindOrCreateClient(ctx, in.TenantID, walkIn)
}

// checkFree is the authoritative conflict check. It must run inside the
// transaction that writes the slot.
func checkFree(ctx context.Context, tx Tx, slot model.SlotKey, excludeID int64) error {
	existing, found, err := tx.FindActiveForUpdate(ctx, slot, excludeID)
	if err != nil {
		return err
	}
	if found {
		return &ConflictError{ID: existing.ID, Date: existing.Date, Time: existing.Time}
	}
	return nil
}

type appointmentPayload struct {
	ID             int64  `json:"id"`
	TenantID       int64  `json:"tenantId"`
	ProfessionalID int64  `json:"professionalId"`
	ServiceID      int64  `json:"serviceId"`
	ClientID       int64  `json:"clientId"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	EndTime        string `json:"endTime"`
	Status         string `json:"status"`
	Price          string `json:"price"`
	PreviousStatus string `json:"previousStatus,omitempty"`
	ReplacedByID   *int64 `json:"replacedById,omitempty"`
}

func emit(ctx context.Context, tx Tx, eventType string, appt model.Appointment, previous *model.Status) error {
	p := appointmentPayload{
		ID:             appt.ID,
		TenantID:       appt.TenantID,
		ProfessionalID: appt.ProfessionalID,
		ServiceID:      appt.ServiceID,
		ClientID:       appt.ClientID,
		Date:           appt.Date,
		Time:           appt.Time.String(),
		EndTime:        appt.EndTime.String(),
		Status:         string(appt.Status),
		Price:          appt.Price.StringFixed(2),
		ReplacedByID:   appt.ReplacedByID,
	}
	if previous != nil {
		p.PreviousStatus = string(*previous)
	}
	evt, err := outbox.NewEvent("appointment", strconv.FormatInt(appt.ID, 10), eventType, p)
	if err != nil {
		return err
	}
	return tx.Emit(ctx, evt)
}
