package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidDate = errors.New("invalid date format")
	ErrInvalidTime = errors.New("invalid time format")
)

// Clock is a wall-clock time expressed as minutes since midnight.
type Clock int

const (
	Midnight Clock = 0
	EndOfDay Clock = 24 * 60
)

// ParseClock parses a request time in strict "HH:MM" form.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, ErrInvalidTime
	}
	return clockFromParts(parts[0], parts[1], "")
}

// ParseStoredClock reads times from TIME columns and saved hours tables:
// "H:MM", "HH:MM" and "HH:MM:SS", with seconds truncated.
func ParseStoredClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, ErrInvalidTime
	}
	if l := len(parts[0]); l < 1 || l > 2 || len(parts[1]) != 2 {
		return 0, ErrInvalidTime
	}
	sec := ""
	if len(parts) == 3 {
		if len(parts[2]) != 2 {
			return 0, ErrInvalidTime
		}
		sec = parts[2]
	}
	return clockFromParts(parts[0], parts[1], sec)
}

// ParseEndClock is ParseStoredClock that also reads "24:00" as EndOfDay.
func ParseEndClock(s string) (Clock, error) {
	switch strings.TrimSpace(s) {
	case "24:00", "24:00:00":
		return EndOfDay, nil
	}
	return ParseStoredClock(s)
}

func clockFromParts(hh, mm, ss string) (Clock, error) {
	if !digits(hh + mm + ss) {
		return 0, ErrInvalidTime
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, ErrInvalidTime
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, ErrInvalidTime
	}
	if ss != "" {
		sec, err := strconv.Atoi(ss)
		if err != nil || sec < 0 || sec > 59 {
			return 0, ErrInvalidTime
		}
	}
	return Clock(h*60 + m), nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ParseDate parses a YYYY-MM-DD calendar date at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// Interval is a half-open range [Start, End) of the day.
type Interval struct {
	Start Clock
	End   Clock
}

func (i Interval) Overlaps(start, end Clock) bool {
	return start < i.End && end > i.Start
}

func maxClock(a, b Clock) Clock {
	if a > b {
		return a
	}
	return b
}

func minClock(a, b Clock) Clock {
	if a < b {
		return a
	}
	return b
}
