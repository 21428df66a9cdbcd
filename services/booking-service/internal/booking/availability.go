package booking

import (
	"context"

	"github.com/agendasalon/agenda/services/booking-service/internal/availability"
	"github.com/agendasalon/agenda/services/booking-service/internal/model"
	"github.com/agendasalon/agenda/services/booking-service/internal/schedule"
	"go.opentelemetry.io/otel/attribute"
)

type AvailabilityQuery struct {
	TenantID       int64
	Date           string
	ProfessionalID int64
	ServiceID      int64
}

type ProfessionalRef struct {
	ID   int64
	Name string
}

// Availability is advisory: Create re-checks the slot inside its transaction.
// A nil Professional means the tenant has no eligible professional.
type Availability struct {
	Professional *ProfessionalRef
	Slots        []schedule.Clock
}

// Availability lists the free start times for a date. Closed days, past dates
// and fully booked days yield an empty list, not an error.
func (s *Service) Availability(ctx context.Context, q AvailabilityQuery) (Availability, error) {
	ctx, span := s.startSpan(ctx, "booking.Availability",
		attribute.Int64("tenant.id", q.TenantID),
		attribute.String("availability.date", q.Date),
	)
	var err error
	defer func() { endSpan(span, err) }()

	var res Availability
	res, err = s.availability(ctx, q)
	if err != nil {
		return Availability{}, err
	}
	span.SetAttributes(attribute.Int("availability.slots", len(res.Slots)))
	s.metrics.SlotsOffered(len(res.Slots))
	return res, nil
}

func (s *Service) availability(ctx context.Context, q AvailabilityQuery) (Availability, error) {
	res := Availability{Slots: []schedule.Clock{}}
	if q.TenantID <= 0 {
		return res, validationf("tenantId is required")
	}
	if q.Date == "" {
		return res, validationf("date is required")
	}

	tenant, err := s.store.Tenant(ctx, q.TenantID)
	if err != nil {
		return res, err
	}
	if tenant.HoursIssues != nil {
		s.logger.Warn("tenant business hours entries read as closed", "tenant_id", tenant.ID, "err", tenant.HoursIssues)
	}
	loc := s.location(tenant)
	date, err := schedule.ParseDate(q.Date, loc)
	if err != nil {
		return res, validationf("date must be YYYY-MM-DD")
	}

	prof, ok, err := s.pickProfessional(ctx, q)
	if err != nil {
		return res, err
	}
	if !ok {
		return res, nil
	}
	res.Professional = &ProfessionalRef{ID: prof.ID, Name: prof.Name}
	if prof.HoursIssues != nil {
		s.logger.Warn("professional weekly hours entries read as days off", "tenant_id", q.TenantID, "professional_id", prof.ID, "err", prof.HoursIssues)
	}
	if !prof.Eligible() {
		return res, nil
	}

	duration := availability.DefaultDuration
	if q.ServiceID > 0 {
		svc, err := s.store.Service(ctx, q.TenantID, q.ServiceID)
		if err != nil {
			return res, err
		}
		if svc.Duration > 0 {
			duration = svc.Duration
		}
	}

	earliest, ok := availability.Cutoff(date, s.cfg.Now())
	if !ok {
		return res, nil
	}
	window, ok := schedule.Resolve(tenant.Hours, prof.Schedule, date)
	if !ok {
		return res, nil
	}
	candidates := availability.GenerateSlots(window, duration, availability.Granularity, earliest)
	if len(candidates) == 0 {
		return res, nil
	}

	booked, err := s.store.ActiveBookings(ctx, q.TenantID, prof.ID, date.Format(schedule.DateLayout))
	if err != nil {
		return res, err
	}
	res.Slots = availability.FilterConflicts(candidates, duration, availability.Busy(booked))
	return res, nil
}

func (s *Service) pickProfessional(ctx context.Context, q AvailabilityQuery) (model.Professional, bool, error) {
	if q.ProfessionalID > 0 {
		p, err := s.store.Professional(ctx, q.TenantID, q.ProfessionalID)
		if err != nil {
			return model.Professional{}, false, err
		}
		return p, true, nil
	}
	all, err := s.store.Professionals(ctx, q.TenantID)
	if err != nil {
		return model.Professional{}, false, err
	}
	p, ok := s.cfg.Policy(all)
	return p, ok, nil
}
