package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/agendasalon/agenda/services/booking-service/internal/availability"
	"github.com/agendasalon/agenda/services/booking-service/internal/booking"
	"github.com/agendasalon/agenda/services/booking-service/internal/model"
	"github.com/agendasalon/agenda/services/booking-service/internal/schedule"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// activeStatusFilter matches appointments that still hold their slot.
const activeStatusFilter = `status NOT IN ('cancelado', 'reagendado')`

const appointmentColumns = `
	id, tenant_id, professional_id, service_id, client_id,
	date::text, time::text, end_time::text, status, price::text, notes,
	replaced_by_id, COALESCE(created_by_user_id, ''), created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var start, end, price string
	err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.ProfessionalID,
		&a.ServiceID,
		&a.ClientID,
		&a.Date,
		&start,
		&end,
		&a.Status,
		&price,
		&a.Notes,
		&a.ReplacedByID,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	if a.Time, err = schedule.ParseStoredClock(start); err != nil {
		return model.Appointment{}, fmt.Errorf("appointment %d time: %w", a.ID, err)
	}
	if a.EndTime, err = schedule.ParseEndClock(end); err != nil {
		return model.Appointment{}, fmt.Errorf("appointment %d end_time: %w", a.ID, err)
	}
	if a.Price, err = decimal.NewFromString(price); err != nil {
		return model.Appointment{}, fmt.Errorf("appointment %d price: %w", a.ID, err)
	}
	return a, nil
}

func getAppointment(ctx context.Context, q querier, tenantID, id int64, forUpdate bool) (model.Appointment, error) {
	sql := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 AND tenant_id = $2`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	a, err := scanAppointment(q.QueryRow(ctx, sql, id, tenantID))
	if err != nil {
		return model.Appointment{}, notFound("appointment", err)
	}
	return a, nil
}

func listAppointments(ctx context.Context, q querier, tenantID int64, f booking.ListFilter) ([]model.Appointment, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.Date != "" {
		add("date = ?::date", f.Date)
	}
	if f.DateFrom != "" {
		add("date >= ?::date", f.DateFrom)
	}
	if f.DateTo != "" {
		add("date <= ?::date", f.DateTo)
	}
	if f.ProfessionalID > 0 {
		add("professional_id = ?", f.ProfessionalID)
	}
	if f.ClientID > 0 {
		add("client_id = ?", f.ClientID)
	}
	if f.Status != "" {
		add("status = ?", string(f.Status))
	}
	args = append(args, f.Limit)

	rows, err := q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY date ASC, time ASC, id ASC
		LIMIT $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appts := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

func activeBookings(ctx context.Context, q querier, tenantID, professionalID int64, date string) ([]availability.Booked, error) {
	rows, err := q.Query(ctx, `
		SELECT a.time::text, COALESCE(s.duration, 0)
		FROM appointments a
		LEFT JOIN services s ON s.id = a.service_id
		WHERE a.tenant_id = $1
			AND a.professional_id = $2
			AND a.date = $3::date
			AND a.`+activeStatusFilter+`
		ORDER BY a.time ASC
	`, tenantID, professionalID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Booked
	for rows.Next() {
		var start string
		var duration int
		if err := rows.Scan(&start, &duration); err != nil {
			return nil, err
		}
		c, err := schedule.ParseStoredClock(start)
		if err != nil {
			return nil, fmt.Errorf("booked time %q: %w", start, err)
		}
		out = append(out, availability.Booked{Start: c, Duration: duration})
	}
	return out, rows.Err()
}
