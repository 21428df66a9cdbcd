package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DayHours is a tenant's business hours for one weekday.
type DayHours struct {
	Open  bool
	Start Clock
	End   Clock
	Lunch *Interval
}

// BusinessHours is a tenant's weekly table. A nil or empty table means the
// tenant never configured one; a missing weekday means closed that day.
type BusinessHours map[time.Weekday]DayHours

func (b BusinessHours) Configured() bool {
	return len(b) > 0
}

// DefaultBusinessHours is Mon–Fri 09:00–18:00, weekend closed.
func DefaultBusinessHours() BusinessHours {
	hours := BusinessHours{
		time.Saturday: {Open: false},
		time.Sunday:   {Open: false},
	}
	for wd := time.Monday; wd <= time.Friday; wd++ {
		hours[wd] = DayHours{Open: true, Start: 9 * 60, End: 18 * 60}
	}
	return hours
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sun":       time.Sunday,
	"mon":       time.Monday,
	"tue":       time.Tuesday,
	"wed":       time.Wednesday,
	"thu":       time.Thursday,
	"fri":       time.Friday,
	"sat":       time.Saturday,
	"domingo":   time.Sunday,
	"segunda":   time.Monday,
	"terca":     time.Tuesday,
	"terça":     time.Tuesday,
	"quarta":    time.Wednesday,
	"quinta":    time.Thursday,
	"sexta":     time.Friday,
	"sabado":    time.Saturday,
	"sábado":    time.Saturday,
}

// ParseWeekday accepts English or Portuguese day names (with or without the
// "-feira" suffix) and the numeric form 0=Sunday..6=Saturday.
func ParseWeekday(s string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimSuffix(key, "-feira")
	if wd, ok := weekdayNames[key]; ok {
		return wd, nil
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), nil
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

type dayHoursJSON struct {
	Day        string  `json:"day"`
	Open       any     `json:"open"`
	IsOpen     *bool   `json:"isOpen"`
	Start      *string `json:"start"`
	End        *string `json:"end"`
	Close      *string `json:"close"`
	LunchStart *string `json:"lunchStart"`
	LunchEnd   *string `json:"lunchEnd"`
}

// ErrInvalidHours marks an hours entry that could not be read. The entry is
// treated as closed and the rest of the table stays usable.
var ErrInvalidHours = errors.New("invalid hours entry")

func invalidEntry(label string, err error) error {
	return fmt.Errorf("%w %q: %w", ErrInvalidHours, label, err)
}

// closedWeek replaces a table that is present but unreadable.
func closedWeek() BusinessHours {
	hours := make(BusinessHours, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		hours[wd] = DayHours{Open: false}
	}
	return hours
}

// ParseBusinessHours decodes the tenant business_hours column. Two shapes are
// accepted: an object keyed by weekday
//
//	{"monday": {"open": true, "start": "09:00", "end": "18:00", "lunchStart": "12:00", "lunchEnd": "13:00"}}
//
// and the legacy list written by the admin panel
//
//	[{"day": "Segunda", "open": "09:00", "close": "18:00", "isOpen": true}]
//
// A day whose entry cannot be read is closed and unknown day labels are
// dropped. The hours are usable even when the returned error, which joins one
// ErrInvalidHours per skipped entry, is non-nil.
func ParseBusinessHours(raw []byte) (BusinessHours, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	type entry struct {
		label string
		raw   json.RawMessage
	}
	var entries []entry
	switch trimmed[0] {
	case '{':
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(raw, &keyed); err != nil {
			return closedWeek(), invalidEntry("business_hours", err)
		}
		for _, name := range slices.Sorted(maps.Keys(keyed)) {
			entries = append(entries, entry{label: name, raw: keyed[name]})
		}
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return closedWeek(), invalidEntry("business_hours", err)
		}
		for _, r := range list {
			entries = append(entries, entry{raw: r})
		}
	default:
		return closedWeek(), invalidEntry("business_hours", fmt.Errorf("unexpected %q", trimmed[:1]))
	}

	hours := BusinessHours{}
	var errs []error
	for i, e := range entries {
		var d dayHoursJSON
		if err := json.Unmarshal(e.raw, &d); err != nil {
			label := e.label
			if label == "" {
				label = "#" + strconv.Itoa(i)
			}
			errs = append(errs, invalidEntry(label, err))
			continue
		}
		label := e.label
		if label == "" {
			label = d.Day
		}
		wd, err := ParseWeekday(label)
		if err != nil {
			errs = append(errs, invalidEntry(label, err))
			continue
		}
		day, err := d.toDayHours()
		if err != nil {
			hours[wd] = DayHours{Open: false}
			errs = append(errs, invalidEntry(label, err))
			continue
		}
		hours[wd] = day
	}
	if len(hours) == 0 {
		if len(errs) > 0 {
			return closedWeek(), errors.Join(errs...)
		}
		return nil, nil
	}
	return hours, errors.Join(errs...)
}

func (d dayHoursJSON) toDayHours() (DayHours, error) {
	// In the list form "open" carries the opening time and "isOpen" the flag.
	open := true
	start := d.Start
	switch v := d.Open.(type) {
	case bool:
		open = v
	case string:
		if start == nil {
			start = &v
		}
	}
	if d.IsOpen != nil {
		open = *d.IsOpen
	}
	end := d.End
	if end == nil {
		end = d.Close
	}
	if !open {
		return DayHours{Open: false}, nil
	}
	if start == nil || end == nil || *start == "" || *end == "" {
		return DayHours{Open: false}, nil
	}

	var out DayHours
	var err error
	out.Open = true
	if out.Start, err = ParseStoredClock(*start); err != nil {
		return DayHours{}, fmt.Errorf("open %q: %w", *start, err)
	}
	if out.End, err = ParseEndClock(*end); err != nil {
		return DayHours{}, fmt.Errorf("close %q: %w", *end, err)
	}
	if out.End <= out.Start {
		return DayHours{}, fmt.Errorf("close %s is not after open %s", out.End, out.Start)
	}
	if d.LunchStart != nil && d.LunchEnd != nil && *d.LunchStart != "" && *d.LunchEnd != "" {
		lunch, err := parseLunch(*d.LunchStart, *d.LunchEnd)
		if err != nil {
			return DayHours{}, err
		}
		out.Lunch = lunch
	}
	return out, nil
}

func parseLunch(start, end string) (*Interval, error) {
	ls, err := ParseStoredClock(start)
	if err != nil {
		return nil, fmt.Errorf("lunch start %q: %w", start, err)
	}
	le, err := ParseEndClock(end)
	if err != nil {
		return nil, fmt.Errorf("lunch end %q: %w", end, err)
	}
	if le <= ls {
		return nil, fmt.Errorf("lunch end %s is not after start %s", le, ls)
	}
	return &Interval{Start: ls, End: le}, nil
}

// WorkingHours is a professional's window for a day.
type WorkingHours struct {
	Off   bool
	Start Clock
	End   Clock
	Lunch *Interval
}

// ProfessionalSchedule keeps professionals on the same per-weekday shape as
// tenants. Days holds optional overrides; every other weekday uses Default.
type ProfessionalSchedule struct {
	Default WorkingHours
	Days    map[time.Weekday]WorkingHours
}

func (p ProfessionalSchedule) For(day time.Weekday) WorkingHours {
	if wh, ok := p.Days[day]; ok {
		return wh
	}
	return p.Default
}

type workingHoursJSON struct {
	Off        bool   `json:"off"`
	Start      string `json:"start"`
	End        string `json:"end"`
	LunchStart string `json:"lunchStart"`
	LunchEnd   string `json:"lunchEnd"`
}

// ParseWeeklyOverrides decodes a professional's weekly_hours column, keyed by
// weekday. An unreadable day is taken as a day off and unknown labels are
// dropped; the returned error joins one ErrInvalidHours per skipped entry.
func ParseWeeklyOverrides(raw []byte) (map[time.Weekday]WorkingHours, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == "{}" {
		return nil, nil
	}
	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, invalidEntry("weekly_hours", err)
	}
	out := make(map[time.Weekday]WorkingHours, len(keyed))
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(keyed)) {
		wd, err := ParseWeekday(name)
		if err != nil {
			errs = append(errs, invalidEntry(name, err))
			continue
		}
		wh, err := parseWorkingHours(keyed[name])
		if err != nil {
			out[wd] = WorkingHours{Off: true}
			errs = append(errs, invalidEntry(name, err))
			continue
		}
		out[wd] = wh
	}
	return out, errors.Join(errs...)
}

func parseWorkingHours(raw json.RawMessage) (WorkingHours, error) {
	var d workingHoursJSON
	if err := json.Unmarshal(raw, &d); err != nil {
		return WorkingHours{}, err
	}
	if d.Off {
		return WorkingHours{Off: true}, nil
	}
	start, err := ParseStoredClock(d.Start)
	if err != nil {
		return WorkingHours{}, fmt.Errorf("start %q: %w", d.Start, err)
	}
	end, err := ParseEndClock(d.End)
	if err != nil {
		return WorkingHours{}, fmt.Errorf("end %q: %w", d.End, err)
	}
	if end <= start {
		return WorkingHours{}, fmt.Errorf("end %s is not after start %s", end, start)
	}
	wh := WorkingHours{Start: start, End: end}
	if d.LunchStart != "" && d.LunchEnd != "" {
		if wh.Lunch, err = parseLunch(d.LunchStart, d.LunchEnd); err != nil {
			return WorkingHours{}, err
		}
	}
	return wh, nil
}
