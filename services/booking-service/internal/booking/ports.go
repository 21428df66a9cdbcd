package booking

import (
	"context"
	"time"

	"github.com/agendasalon/agenda/services/booking-service/internal/availability"
	"github.com/agendasalon/agenda/services/booking-service/internal/model"
	"github.com/agendasalon/agenda/services/booking-service/internal/outbox"
)

type TenantScheduleProvider interface {
	Tenant(ctx context.Context, tenantID int64) (model.Tenant, error)
}

type ProfessionalProvider interface {
	Professional(ctx context.Context, tenantID, id int64) (model.Professional, error)
	// Professionals lists the tenant's professionals ordered by id.
	Professionals(ctx context.Context, tenantID int64) ([]model.Professional, error)
}

type ServiceProvider interface {
	Service(ctx context.Context, tenantID, id int64) (model.Service, error)
}

type WalkIn struct {
	Name  string
	Phone string
	Email string
}

type ClientProvider interface {
	ClientExists(ctx context.Context, tenantID, id int64) (bool, error)
	// FindOrCreateClient matches a walk-in by phone, creating the client when absent.
	FindOrCreateClient(ctx context.Context, tenantID int64, c WalkIn) (int64, error)
	RecordVisit(ctx context.Context, tenantID, clientID int64, at time.Time) error
}

type ListFilter struct {
	Date           string
	DateFrom       string
	DateTo         string
	ProfessionalID int64
	ClientID       int64
	Status         model.Status
	Limit          int
}

// Store is the appointment store. Reads outside InTx run at read committed
// and are advisory; every write happens inside InTx.
type Store interface {
	TenantScheduleProvider
	ProfessionalProvider
	ServiceProvider

	ActiveBookings(ctx context.Context, tenantID, professionalID int64, date string) ([]availability.Booked, error)
	GetAppointment(ctx context.Context, tenantID, id int64) (model.Appointment, error)
	ListAppointments(ctx context.Context, tenantID int64, f ListFilter) ([]model.Appointment, error)

	// InTx runs fn in one serializable transaction. Store failures that are
	// safe to retry come back wrapping ErrTransient; errors returned by fn
	// come back unchanged.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the write side of a booking transaction.
type Tx interface {
	ProfessionalProvider
	ServiceProvider
	ClientProvider

	// FindActiveForUpdate locks and returns the active appointment on key, ignoring excludeID.
	FindActiveForUpdate(ctx context.Context, key model.SlotKey, excludeID int64) (model.Appointment, bool, error)
	LockAppointment(ctx context.Context, tenantID, id int64) (model.Appointment, error)
	InsertAppointment(ctx context.Context, appt *model.Appointment) error
	UpdateAppointment(ctx context.Context, appt *model.Appointment) error

	// ClaimIdempotencyKey locks key for this transaction and returns the
	// appointment already recorded under it, if any.
	ClaimIdempotencyKey(ctx context.Context, tenantID int64, key string) (int64, bool, error)
	SaveIdempotencyKey(ctx context.Context, tenantID int64, key string, appointmentID int64) error

	Emit(ctx context.Context, evt outbox.Event) error
}
