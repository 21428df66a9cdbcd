package booking

import "github.com/agendasalon/agenda/services/booking-service/internal/model"

// transitions maps a target status to the statuses it may be reached from.
var transitions = map[model.Status][]model.Status{
	model.StatusConfirmed:  {model.StatusScheduled},
	model.StatusInService:  {model.StatusScheduled, model.StatusConfirmed},
	model.StatusCompleted:  {model.StatusInService},
	model.StatusCanceled:   {model.StatusScheduled, model.StatusConfirmed, model.StatusInService},
	model.StatusNoShow:     {model.StatusScheduled, model.StatusConfirmed, model.StatusInService},
	model.StatusReschedule: {model.StatusScheduled, model.StatusConfirmed, model.StatusInService},
}

func ValidTransition(from, to model.Status) bool {
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}
