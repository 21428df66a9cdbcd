package model

import (
	"github.com/agendasalon/agenda/services/booking-service/internal/schedule"
	"github.com/shopspring/decimal"
)

type Tenant struct {
	ID       int64
	Name     string
	Timezone string
	Hours    schedule.BusinessHours

	// HoursIssues lists business-hours entries that were read as closed.
	HoursIssues error
}

type Professional struct {
	ID          int64
	TenantID    int64
	Name        string
	Schedule    schedule.ProfessionalSchedule
	IsSuspended bool
	IsArchived  bool
	// HoursIssues lists weekly override entries that were read as days off.
	HoursIssues error
}

func (p Professional) Eligible() bool {
	return !p.IsSuspended && !p.IsArchived
}

type Service struct {
	ID       int64
	TenantID int64
	Name     string
	Duration int
	Price    decimal.Decimal
}
