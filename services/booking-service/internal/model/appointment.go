package model

import (
	"time"

	"github.com/agendasalon/agenda/services/booking-service/internal/schedule"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusScheduled  Status = "agendado"
	StatusConfirmed  Status = "confirmado"
	StatusInService  Status = "em_atendimento"
	StatusCompleted  Status = "concluido"
	StatusCanceled   Status = "cancelado"
	StatusNoShow     Status = "faltou"
	StatusReschedule Status = "reagendado"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInService, StatusCompleted,
		StatusCanceled, StatusNoShow, StatusReschedule:
		return true
	}
	return false
}

// Active reports whether an appointment in this status still holds its slot.
func (s Status) Active() bool {
	return s != StatusCanceled && s != StatusReschedule
}

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCanceled, StatusNoShow, StatusReschedule:
		return true
	}
	return false
}

type Appointment struct {
	ID             int64
	TenantID       int64
	ProfessionalID int64
	ServiceID      int64
	ClientID       int64
	Date           string
	Time           schedule.Clock
	EndTime        schedule.Clock
	Status         Status
	Price          decimal.Decimal
	Notes          string
	ReplacedByID   *int64
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SlotKey identifies the slot an active appointment occupies.
type SlotKey struct {
	TenantID       int64
	ProfessionalID int64
	Date           string
	Time           schedule.Clock
}

func (a Appointment) Key() SlotKey {
	return SlotKey{TenantID: a.TenantID, ProfessionalID: a.ProfessionalID, Date: a.Date, Time: a.Time}
}
