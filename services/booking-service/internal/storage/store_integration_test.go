package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agendasalon/agenda/libs/db"
	"github.com/agendasalon/agenda/services/booking-service/internal/booking"
	"github.com/agendasalon/agenda/services/booking-service/internal/model"
	"github.com/agendasalon/agenda/services/booking-service/internal/outbox"
	"github.com/agendasalon/agenda/services/booking-service/internal/schedule"
	"github.com/agendasalon/agenda/services/booking-service/migrations"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type seed struct {
	tenantID       int64
	professionalID int64
	serviceID      int64
	clientID       int64
}

func TestCreateRace(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)
	ids := seedBaseData(t, ctx, pool)
	svc := newBookingService(st)

	const n = 20
	var wg sync.WaitGroup
	type result struct {
		appt model.Appointment
		err  error
	}
	results := make(chan result, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			appt, err := svc.Create(ctx, booking.CreateInput{
				TenantID:       ids.tenantID,
				ProfessionalID: ids.professionalID,
				ServiceID:      ids.serviceID,
				ClientID:       ids.clientID,
				Date:           "2024-06-10",
				Time:           "10:00",
			})
			results <- result{appt: appt, err: err}
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var winners []model.Appointment
	var conflicts []*booking.ConflictError
	for r := range results {
		var conflict *booking.ConflictError
		switch {
		case r.err == nil:
			winners = append(winners, r.appt)
		case errors.As(r.err, &conflict):
			conflicts = append(conflicts, conflict)
		default:
			t.Fatalf("unexpected error: %v", r.err)
		}
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly one booking, got %d", len(winners))
	}
	if winners[0].Status != model.StatusScheduled {
		t.Fatalf("expected agendado, got %s", winners[0].Status)
	}
	for _, c := range conflicts {
		if c.ID != winners[0].ID {
			t.Fatalf("conflict references %d, winner is %d", c.ID, winners[0].ID)
		}
	}

	var active int
	if err := pool.QueryRow(ctx, `
		SELECT count(*) FROM appointments
		WHERE professional_id = $1 AND date = '2024-06-10' AND time = '10:00' AND status NOT IN ('cancelado', 'reagendado')
	`, ids.professionalID).Scan(&active); err != nil {
		t.Fatalf("count: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected one active row, got %d", active)
	}
}

func TestAvailabilityAndReschedule(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)
	ids := seedBaseData(t, ctx, pool)
	svc := newBookingService(st)

	appt, err := svc.Create(ctx, booking.CreateInput{
		TenantID:       ids.tenantID,
		ProfessionalID: ids.professionalID,
		ServiceID:      ids.serviceID,
		ClientID:       ids.clientID,
		Date:           "2024-06-10",
		Time:           "10:00",
		IdempotencyKey: "it-" + uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if appt.EndTime.String() != "11:00" || appt.Price.StringFixed(2) != "80.00" {
		t.Fatalf("unexpected end/price %s %s", appt.EndTime, appt.Price)
	}

	res, err := svc.Availability(ctx, booking.AvailabilityQuery{TenantID: ids.tenantID, Date: "2024-06-10", ProfessionalID: ids.professionalID})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	for _, s := range res.Slots {
		switch s.String() {
		case "10:00", "10:30", "12:00", "12:30":
			t.Fatalf("slot %s should not be offered", s)
		}
	}

	moved, err := svc.Reschedule(ctx, booking.RescheduleInput{TenantID: ids.tenantID, ID: appt.ID, Date: "2024-06-11", Time: "15:00"})
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	var replacedBy *int64
	var status string
	if err := pool.QueryRow(ctx, `SELECT replaced_by_id, status FROM appointments WHERE id = $1`, appt.ID).Scan(&replacedBy, &status); err != nil {
		t.Fatalf("select: %v", err)
	}
	if status != string(model.StatusReschedule) || replacedBy == nil || *replacedBy != moved.Replacement.ID {
		t.Fatalf("expected old row linked to %d, got %v %s", moved.Replacement.ID, replacedBy, status)
	}

	list, err := svc.List(ctx, ids.tenantID, booking.ListFilter{DateFrom: "2024-06-01", DateTo: "2024-06-30", Status: model.StatusScheduled})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != moved.Replacement.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	repo := outbox.NewRepository()
	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	records, err := repo.FetchUnpublished(ctx, tx, 10)
	if err != nil {
		t.Fatalf("fetch outbox: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected created, rescheduled and created events, got %d", len(records))
	}
	if records[0].EventType != outbox.AppointmentCreated || records[1].EventType != outbox.AppointmentRescheduled {
		t.Fatalf("unexpected event order %s, %s", records[0].EventType, records[1].EventType)
	}
}

func TestCompletedRecordsVisit(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)
	ids := seedBaseData(t, ctx, pool)
	svc := newBookingService(st)

	appt, err := svc.Create(ctx, booking.CreateInput{
		TenantID:       ids.tenantID,
		ProfessionalID: ids.professionalID,
		ServiceID:      ids.serviceID,
		ClientID:       ids.clientID,
		Date:           "2024-06-10",
		Time:           "14:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, s := range []model.Status{model.StatusInService, model.StatusCompleted} {
		if _, err := svc.UpdateStatus(ctx, ids.tenantID, appt.ID, s); err != nil {
			t.Fatalf("status %s: %v", s, err)
		}
	}
	var visits int
	if err := pool.QueryRow(ctx, `SELECT total_visits FROM clients WHERE id = $1`, ids.clientID).Scan(&visits); err != nil {
		t.Fatalf("select: %v", err)
	}
	if visits != 1 {
		t.Fatalf("expected 1 visit, got %d", visits)
	}
}

func TestDirectoryHoursTolerated(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)
	ids := seedBaseData(t, ctx, pool)

	if _, err := pool.Exec(ctx, `UPDATE tenants SET business_hours = $2::jsonb WHERE id = $1`, ids.tenantID,
		`[{"day":"Sexta","open":"18:00","close":"24:00","isOpen":true},{"day":"Feriado","open":"09:00","close":"12:00","isOpen":true}]`); err != nil {
		t.Fatalf("update hours: %v", err)
	}
	tenant, err := st.Tenant(ctx, ids.tenantID)
	if err != nil {
		t.Fatalf("tenant: %v", err)
	}
	if !errors.Is(tenant.HoursIssues, schedule.ErrInvalidHours) {
		t.Fatalf("expected hours issues, got %v", tenant.HoursIssues)
	}
	if fri := tenant.Hours[time.Friday]; !fri.Open || fri.End != schedule.EndOfDay {
		t.Fatalf("unexpected friday %+v", fri)
	}

	prof, err := st.Professional(ctx, ids.tenantID, ids.professionalID)
	if err != nil {
		t.Fatalf("professional: %v", err)
	}
	if prof.Schedule.Default.Start != 9*60 || prof.Schedule.Default.End != 18*60 || prof.Schedule.Default.Lunch == nil {
		t.Fatalf("expected default window for NULL hours, got %+v", prof.Schedule.Default)
	}

	var nightID int64
	if err := pool.QueryRow(ctx, `
		INSERT INTO professionals (tenant_id, name, start_time, end_time, lunch_start, lunch_end, weekly_hours)
		VALUES ($1, 'Rafael', '14:00', '24:00', NULL, NULL, '{"monday": {"start": "25:00", "end": "18:00"}}')
		RETURNING id`, ids.tenantID).Scan(&nightID); err != nil {
		t.Fatalf("insert professional: %v", err)
	}
	night, err := st.Professional(ctx, ids.tenantID, nightID)
	if err != nil {
		t.Fatalf("professional: %v", err)
	}
	if night.Schedule.Default.End != schedule.EndOfDay || night.Schedule.Default.Lunch != nil {
		t.Fatalf("unexpected window %+v", night.Schedule.Default)
	}
	if !night.Schedule.For(time.Monday).Off || !errors.Is(night.HoursIssues, schedule.ErrInvalidHours) {
		t.Fatalf("expected unreadable monday off, got %+v (%v)", night.Schedule.For(time.Monday), night.HoursIssues)
	}
}

func newBookingService(st *Store) *booking.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return booking.NewService(st, logger, nil, booking.Config{
		Now: func() time.Time { return time.Date(2024, 6, 9, 8, 0, 0, 0, time.UTC) },
	})
}

func setupTestStore(t *testing.T, ctx context.Context) (*Store, *db.Pool, func()) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is required for integration tests")
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := execAdmin(ctx, dsn, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.MaxConns = 25
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	pool := &db.Pool{Pool: p}

	if _, err := db.NewMigrator(pool, migrations.FS).Up(ctx); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		_ = execAdmin(context.Background(), dsn, "DROP SCHEMA IF EXISTS "+schema+" CASCADE")
	}
	return NewStore(pool, outbox.NewRepository(), time.Second), pool, cleanup
}

func execAdmin(ctx context.Context, dsn, sql string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, sql)
	return err
}

func seedBaseData(t *testing.T, ctx context.Context, pool *db.Pool) seed {
	t.Helper()
	var s seed
	if err := pool.QueryRow(ctx, `INSERT INTO tenants (name) VALUES ('Salão Central') RETURNING id`).Scan(&s.tenantID); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO professionals (tenant_id, name) VALUES ($1, 'Marina') RETURNING id`, s.tenantID).Scan(&s.professionalID); err != nil {
		t.Fatalf("seed professional: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO services (tenant_id, name, duration, price) VALUES ($1, 'Corte', 60, 80.00) RETURNING id`, s.tenantID).Scan(&s.serviceID); err != nil {
		t.Fatalf("seed service: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO clients (tenant_id, name, phone) VALUES ($1, 'João', '11999990000') RETURNING id`, s.tenantID).Scan(&s.clientID); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return s
}
