package availability

import (
	"time"

	"github.com/agendasalon/agenda/services/booking-service/internal/schedule"
)

const (
	// Granularity is the step between candidate start times, in minutes.
	Granularity = 30
	// DefaultDuration is used when no service is given or a booked service has no duration.
	DefaultDuration = 30
)

// Cutoff returns the earliest start time still bookable on date given now.
// Past dates are not bookable at all; today drops everything up to and
// including the current minute; later dates keep the whole day.
func Cutoff(date, now time.Time) (schedule.Clock, bool) {
	now = now.In(date.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, date.Location())
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	switch {
	case day.Before(today):
		return 0, false
	case day.Equal(today):
		return schedule.ClockOf(now).Add(1), true
	default:
		return schedule.Midnight, true
	}
}

// GenerateSlots enumerates start times inside w, stepping by step minutes,
// where a booking of duration minutes fits before w.End, stays clear of the
// lunch interval, and starts no earlier than earliest. Output is ascending.
func GenerateSlots(w schedule.Window, duration, step int, earliest schedule.Clock) []schedule.Clock {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if w.End <= w.Start {
		return nil
	}

	var slots []schedule.Clock
	for t := w.Start; t.Add(duration) <= w.End; t = t.Add(step) {
		if t < earliest {
			continue
		}
		if w.Lunch != nil && w.Lunch.Overlaps(t, t.Add(duration)) {
			continue
		}
		slots = append(slots, t)
	}
	return slots
}
