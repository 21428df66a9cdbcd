package storage

import (
	"context"
	"fmt"

	"github.com/agendasalon/agenda/services/booking-service/internal/model"
	"github.com/agendasalon/agenda/services/booking-service/internal/schedule"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// getTenant keeps unreadable business-hours entries as closed days and
// reports them on Tenant.HoursIssues.
func getTenant(ctx context.Context, q querier, tenantID int64) (model.Tenant, error) {
	var t model.Tenant
	var hours string
	err := q.QueryRow(ctx, `
		SELECT id, name, timezone, COALESCE(business_hours::text, '')
		FROM tenants
		WHERE id = $1
	`, tenantID).Scan(&t.ID, &t.Name, &t.Timezone, &hours)
	if err != nil {
		return model.Tenant{}, notFound("tenant", err)
	}
	t.Hours, t.HoursIssues = schedule.ParseBusinessHours([]byte(hours))
	return t, nil
}

const professionalColumns = `
	id, tenant_id, name,
	start_time::text, end_time::text,
	COALESCE(lunch_start::text, ''), COALESCE(lunch_end::text, ''),
	COALESCE(weekly_hours::text, ''),
	is_suspended, is_archived`

func scanProfessional(row pgx.Row) (model.Professional, error) {
	var p model.Professional
	var start, end *string
	var lunchStart, lunchEnd, weekly string
	if err := row.Scan(&p.ID, &p.TenantID, &p.Name, &start, &end, &lunchStart, &lunchEnd, &weekly, &p.IsSuspended, &p.IsArchived); err != nil {
		return model.Professional{}, err
	}

	wh := schedule.DefaultProfessionalHours()
	var err error
	if start != nil && end != nil {
		wh = schedule.WorkingHours{}
		if wh.Start, err = schedule.ParseStoredClock(*start); err != nil {
			return model.Professional{}, fmt.Errorf("professional %d start_time: %w", p.ID, err)
		}
		if wh.End, err = schedule.ParseEndClock(*end); err != nil {
			return model.Professional{}, fmt.Errorf("professional %d end_time: %w", p.ID, err)
		}
	}
	if lunchStart != "" && lunchEnd != "" {
		ls, err := schedule.ParseStoredClock(lunchStart)
		if err != nil {
			return model.Professional{}, fmt.Errorf("professional %d lunch_start: %w", p.ID, err)
		}
		le, err := schedule.ParseEndClock(lunchEnd)
		if err != nil {
			return model.Professional{}, fmt.Errorf("professional %d lunch_end: %w", p.ID, err)
		}
		wh.Lunch = &schedule.Interval{Start: ls, End: le}
	}
	days, issues := schedule.ParseWeeklyOverrides([]byte(weekly))
	p.Schedule = schedule.ProfessionalSchedule{Default: wh, Days: days}
	p.HoursIssues = issues
	return p, nil
}

func getProfessional(ctx context.Context, q querier, tenantID, id int64) (model.Professional, error) {
	p, err := scanProfessional(q.QueryRow(ctx, `
		SELECT `+professionalColumns+`
		FROM professionals
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID))
	if err != nil {
		return model.Professional{}, notFound("professional", err)
	}
	return p, nil
}

func listProfessionals(ctx context.Context, q querier, tenantID int64) ([]model.Professional, error) {
	rows, err := q.Query(ctx, `
		SELECT `+professionalColumns+`
		FROM professionals
		WHERE tenant_id = $1
		ORDER BY id ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Professional
	for rows.Next() {
		p, err := scanProfessional(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func getService(ctx context.Context, q querier, tenantID, id int64) (model.Service, error) {
	var s model.Service
	var price string
	err := q.QueryRow(ctx, `
		SELECT id, tenant_id, name, duration, price::text
		FROM services
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID).Scan(&s.ID, &s.TenantID, &s.Name, &s.Duration, &price)
	if err != nil {
		return model.Service{}, notFound("service", err)
	}
	if s.Price, err = decimal.NewFromString(price); err != nil {
		return model.Service{}, fmt.Errorf("service %d price: %w", id, err)
	}
	return s, nil
}
