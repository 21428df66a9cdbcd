package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/agendasalon/agenda/libs/db"
	"github.com/agendasalon/agenda/services/booking-service/internal/availability"
	"github.com/agendasalon/agenda/services/booking-service/internal/booking"
	"github.com/agendasalon/agenda/services/booking-service/internal/model"
	"github.com/agendasalon/agenda/services/booking-service/internal/outbox"
	"github.com/jackc/pgx/v5"
)

const defaultLockTimeout = 2 * time.Second

var (
	_ booking.Store = (*Store)(nil)
	_ booking.Tx    = (*Tx)(nil)
)

// Store is the Postgres implementation of booking.Store. Reads on the pool run
// at read committed; InTx runs serializable.
type Store struct {
	pool        *db.Pool
	outbox      *outbox.Repository
	lockTimeout time.Duration
}

func NewStore(pool *db.Pool, outboxRepo *outbox.Repository, lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	return &Store{pool: pool, outbox: outboxRepo, lockTimeout: lockTimeout}
}

func (s *Store) Tenant(ctx context.Context, tenantID int64) (model.Tenant, error) {
	return getTenant(ctx, s.pool, tenantID)
}

func (s *Store) Professional(ctx context.Context, tenantID, id int64) (model.Professional, error) {
	return getProfessional(ctx, s.pool, tenantID, id)
}

func (s *Store) Professionals(ctx context.Context, tenantID int64) ([]model.Professional, error) {
	return listProfessionals(ctx, s.pool, tenantID)
}

func (s *Store) Service(ctx context.Context, tenantID, id int64) (model.Service, error) {
	return getService(ctx, s.pool, tenantID, id)
}

func (s *Store) ActiveBookings(ctx context.Context, tenantID, professionalID int64, date string) ([]availability.Booked, error) {
	return activeBookings(ctx, s.pool, tenantID, professionalID, date)
}

func (s *Store) GetAppointment(ctx context.Context, tenantID, id int64) (model.Appointment, error) {
	return getAppointment(ctx, s.pool, tenantID, id, false)
}

func (s *Store) ListAppointments(ctx context.Context, tenantID int64, f booking.ListFilter) ([]model.Appointment, error) {
	return listAppointments(ctx, s.pool, tenantID, f)
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())); err != nil {
		return classify(err)
	}
	if err := fn(ctx, &Tx{tx: tx, outbox: s.outbox}); err != nil {
		return classify(err)
	}
	return classify(tx.Commit(ctx))
}

// Tx is one serializable booking transaction.
type Tx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (t *Tx) Professional(ctx context.Context, tenantID, id int64) (model.Professional, error) {
	return getProfessional(ctx, t.tx, tenantID, id)
}

func (t *Tx) Professionals(ctx context.Context, tenantID int64) ([]model.Professional, error) {
	return listProfessionals(ctx, t.tx, tenantID)
}

func (t *Tx) Service(ctx context.Context, tenantID, id int64) (model.Service, error) {
	return getService(ctx, t.tx, tenantID, id)
}

func (t *Tx) ClientExists(ctx context.Context, tenantID, id int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1 AND tenant_id = $2)
	`, id, tenantID).Scan(&exists)
	return exists, err
}

func (t *Tx) FindOrCreateClient(ctx context.Context, tenantID int64, c booking.WalkIn) (int64, error) {
	var id int64
	if c.Phone != "" {
		err := t.tx.QueryRow(ctx, `
			SELECT id FROM clients
			WHERE tenant_id = $1 AND phone = $2
			ORDER BY id ASC
			LIMIT 1
		`, tenantID, c.Phone).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !IsNotFound(err) {
			return 0, err
		}
	}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO clients (tenant_id, name, phone, email)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, tenantID, c.Name, c.Phone, c.Email).Scan(&id)
	return id, err
}

func (t *Tx) RecordVisit(ctx context.Context, tenantID, clientID int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE clients
		SET total_visits = total_visits + 1,
			last_visit_at = $3
		WHERE id = $1 AND tenant_id = $2
	`, clientID, tenantID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound("client", pgx.ErrNoRows)
	}
	return nil
}

// FindActiveForUpdate takes a transaction-scoped advisory lock on the slot
// key before looking for its holder, so two bookings for an empty slot queue
// up instead of both finding nothing.
func (t *Tx) FindActiveForUpdate(ctx context.Context, key model.SlotKey, excludeID int64) (model.Appointment, bool, error) {
	lockKey := fmt.Sprintf("appointment:%d:%d:%s:%s", key.TenantID, key.ProfessionalID, key.Date, key.Time)
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
		return model.Appointment{}, false, err
	}

	a, err := scanAppointment(t.tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1
			AND professional_id = $2
			AND date = $3::date
			AND time = $4::time
			AND id <> $5
			AND `+activeStatusFilter+`
		ORDER BY id ASC
		LIMIT 1
		FOR UPDATE
	`, key.TenantID, key.ProfessionalID, key.Date, key.Time.String(), excludeID))
	if IsNotFound(err) {
		return model.Appointment{}, false, nil
	}
	if err != nil {
		return model.Appointment{}, false, err
	}
	return a, true, nil
}

func (t *Tx) LockAppointment(ctx context.Context, tenantID, id int64) (model.Appointment, error) {
	return getAppointment(ctx, t.tx, tenantID, id, true)
}

func (t *Tx) InsertAppointment(ctx context.Context, appt *model.Appointment) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO appointments
			(tenant_id, professional_id, service_id, client_id, date, time, end_time, status, price, notes, replaced_by_id, created_by_user_id)
		VALUES ($1, $2, $3, $4, $5::date, $6::time, $7::time, $8, $9::numeric, $10, $11, NULLIF($12, ''))
		RETURNING id, created_at, updated_at
	`, appt.TenantID, appt.ProfessionalID, appt.ServiceID, appt.ClientID,
		appt.Date, appt.Time.String(), appt.EndTime.String(), string(appt.Status),
		appt.Price.StringFixed(2), appt.Notes, appt.ReplacedByID, appt.CreatedBy,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
}

func (t *Tx) UpdateAppointment(ctx context.Context, appt *model.Appointment) error {
	err := t.tx.QueryRow(ctx, `
		UPDATE appointments
		SET professional_id = $3,
			service_id = $4,
			client_id = $5,
			date = $6::date,
			time = $7::time,
			end_time = $8::time,
			status = $9,
			price = $10::numeric,
			notes = $11,
			replaced_by_id = $12,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING updated_at
	`, appt.ID, appt.TenantID, appt.ProfessionalID, appt.ServiceID, appt.ClientID,
		appt.Date, appt.Time.String(), appt.EndTime.String(), string(appt.Status),
		appt.Price.StringFixed(2), appt.Notes, appt.ReplacedByID,
	).Scan(&appt.UpdatedAt)
	return notFound("appointment", err)
}

func (t *Tx) ClaimIdempotencyKey(ctx context.Context, tenantID int64, key string) (int64, bool, error) {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (tenant_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (tenant_id, idempotency_key) DO NOTHING
	`, tenantID, key)
	if err != nil {
		return 0, false, err
	}

	var appointmentID *int64
	err = t.tx.QueryRow(ctx, `
		SELECT appointment_id
		FROM booking_idempotency_keys
		WHERE tenant_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, tenantID, key).Scan(&appointmentID)
	if err != nil {
		return 0, false, err
	}
	if appointmentID == nil {
		return 0, false, nil
	}
	return *appointmentID, true, nil
}

func (t *Tx) SaveIdempotencyKey(ctx context.Context, tenantID int64, key string, appointmentID int64) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = $3,
			updated_at = now()
		WHERE tenant_id = $1 AND idempotency_key = $2
	`, tenantID, key, appointmentID)
	return err
}

func (t *Tx) Emit(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}
