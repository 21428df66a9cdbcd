package booking

import (
	"context"
	"time"

	"github.com/agendasalon/agenda/services/booking-service/internal/model"
	"github.com/agendasalon/agenda/services/booking-service/internal/schedule"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

func (s *Service) Get(ctx context.Context, tenantID, id int64) (model.Appointment, error) {
	if tenantID <= 0 || id <= 0 {
		return model.Appointment{}, validationf("tenantId and appointment id are required")
	}
	return s.store.GetAppointment(ctx, tenantID, id)
}

// List returns appointments ordered by date and time. Date narrows to one
// day; DateFrom and DateTo bound a range and are ignored when Date is set.
func (s *Service) List(ctx context.Context, tenantID int64, f ListFilter) ([]model.Appointment, error) {
	if tenantID <= 0 {
		return nil, validationf("tenantId is required")
	}
	for _, d := range []*string{&f.Date, &f.DateFrom, &f.DateTo} {
		if *d == "" {
			continue
		}
		parsed, err := schedule.ParseDate(*d, time.UTC)
		if err != nil {
			return nil, validationf("dates must be YYYY-MM-DD")
		}
		*d = parsed.Format(schedule.DateLayout)
	}
	if f.Date != "" {
		f.DateFrom, f.DateTo = "", ""
	}
	if f.DateFrom != "" && f.DateTo != "" && f.DateFrom > f.DateTo {
		return nil, validationf("dateFrom must not be after dateTo")
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, validationf("unknown status %q", f.Status)
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	return s.store.ListAppointments(ctx, tenantID, f)
}
