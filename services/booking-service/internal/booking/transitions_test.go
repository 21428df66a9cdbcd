package booking

import (
	"testing"

	"github.com/agendasalon/agenda/services/booking-service/internal/model"
)

func TestValidTransition(t *testing.T) {
	cases := []struct {
		from model.Status
		to   model.Status
		ok   bool
	}{
		{model.StatusScheduled, model.StatusConfirmed, true},
		{model.StatusScheduled, model.StatusInService, true},
		{model.StatusConfirmed, model.StatusInService, true},
		{model.StatusInService, model.StatusCompleted, true},
		{model.StatusScheduled, model.StatusCompleted, false},
		{model.StatusConfirmed, model.StatusScheduled, false},
		{model.StatusInService, model.StatusCanceled, true},
		{model.StatusConfirmed, model.StatusNoShow, true},
		{model.StatusScheduled, model.StatusReschedule, true},
		{model.StatusCanceled, model.StatusScheduled, false},
		{model.StatusCompleted, model.StatusCanceled, false},
		{model.StatusNoShow, model.StatusReschedule, false},
		{model.StatusReschedule, model.StatusCanceled, false},
	}
	for _, tc := range cases {
		if got := ValidTransition(tc.from, tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	terminal := []model.Status{model.StatusCompleted, model.StatusCanceled, model.StatusNoShow, model.StatusReschedule}
	for _, from := range terminal {
		for to := range transitions {
			if ValidTransition(from, to) {
				t.Fatalf("terminal %s must not move to %s", from, to)
			}
		}
	}
}
