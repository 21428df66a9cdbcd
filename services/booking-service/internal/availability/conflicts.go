package availability

import "github.com/agendasalon/agenda/services/booking-service/internal/schedule"

// Booked is an active appointment reduced to its start and its service duration.
type Booked struct {
	Start    schedule.Clock
	Duration int
}

// Busy turns booked appointments into half-open intervals. A missing
// duration counts as DefaultDuration.
func Busy(booked []Booked) []schedule.Interval {
	out := make([]schedule.Interval, 0, len(booked))
	for _, b := range booked {
		d := b.Duration
		if d <= 0 {
			d = DefaultDuration
		}
		out = append(out, schedule.Interval{Start: b.Start, End: b.Start.Add(d)})
	}
	return out
}

// FilterConflicts drops every slot whose [s, s+duration) overlaps a busy interval.
// Order is preserved.
func FilterConflicts(slots []schedule.Clock, duration int, busy []schedule.Interval) []schedule.Clock {
	out := make([]schedule.Clock, 0, len(slots))
	for _, s := range slots {
		if !overlapsAny(s, s.Add(duration), busy) {
			out = append(out, s)
		}
	}
	return out
}

func overlapsAny(start, end schedule.Clock, busy []schedule.Interval) bool {
	for _, b := range busy {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}
