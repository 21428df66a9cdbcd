package schedule

import "time"

// Window is the effective range for a date during which both the tenant is
// open and the professional is working.
type Window struct {
	Start Clock
	End   Clock
	Lunch *Interval
}

// DefaultProfessionalHours applies to professionals stored without a start or end time.
func DefaultProfessionalHours() WorkingHours {
	return WorkingHours{
		Start: 9 * 60,
		End:   18 * 60,
		Lunch: &Interval{Start: 12 * 60, End: 13 * 60},
	}
}

// Resolve intersects the tenant's hours for date's weekday with the
// professional's hours. ok is false when there is no window: the tenant is
// closed or has no entry for that weekday, the professional is off, or the
// intersection is empty.
func Resolve(tenant BusinessHours, prof ProfessionalSchedule, date time.Time) (Window, bool) {
	if !tenant.Configured() {
		tenant = DefaultBusinessHours()
	}
	wd := date.Weekday()
	day, found := tenant[wd]
	if !found || !day.Open {
		return Window{}, false
	}
	wh := prof.For(wd)
	if wh.Off {
		return Window{}, false
	}

	w := Window{
		Start: maxClock(wh.Start, day.Start),
		End:   minClock(wh.End, day.End),
	}
	if w.End <= w.Start {
		return Window{}, false
	}

	// Tenant lunch wins only when both bounds are set.
	switch {
	case day.Lunch != nil:
		l := *day.Lunch
		w.Lunch = &l
	case wh.Lunch != nil:
		l := *wh.Lunch
		w.Lunch = &l
	}
	return w, true
}
