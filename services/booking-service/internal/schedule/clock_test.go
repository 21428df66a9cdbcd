package schedule

import (
	"errors"
	"fmt"
	"testing"
)

func mustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(fmt.Sprintf("bad clock %q", s))
	}
	return c
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want Clock
		err  bool
	}{
		{in: "09:00", want: 540},
		{in: "17:45", want: 17*60 + 45},
		{in: " 08:15 ", want: 8*60 + 15},
		{in: "10:00:30", err: true},
		{in: "10:00:00", err: true},
		{in: "9:00", err: true},
		{in: "24:00", err: true},
		{in: "12:60", err: true},
		{in: "+9:00", err: true},
		{in: "", err: true},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.err {
			if !errors.Is(err, ErrInvalidTime) {
				t.Fatalf("%q: expected ErrInvalidTime, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %d, got %d", tc.in, tc.want, got)
		}
	}
	if s := Clock(13*60 + 5).String(); s != "13:05" {
		t.Fatalf("expected 13:05, got %s", s)
	}
}

func TestParseStoredClock(t *testing.T) {
	cases := []struct {
		in   string
		want Clock
		err  bool
	}{
		{in: "10:00:00", want: 600},
		{in: "10:00:30", want: 600},
		{in: "9:00", want: 540},
		{in: "09:00", want: 540},
		{in: "24:00", err: true},
		{in: "9:0", err: true},
		{in: "123:00", err: true},
		{in: "10:00:5", err: true},
	}
	for _, tc := range cases {
		got, err := ParseStoredClock(tc.in)
		if tc.err {
			if !errors.Is(err, ErrInvalidTime) {
				t.Fatalf("%q: expected ErrInvalidTime, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q: expected %d, got %d (%v)", tc.in, tc.want, got, err)
		}
	}
}

func TestParseEndClock(t *testing.T) {
	for _, in := range []string{"24:00", "24:00:00"} {
		got, err := ParseEndClock(in)
		if err != nil || got != EndOfDay {
			t.Fatalf("%q: expected end of day, got %d (%v)", in, got, err)
		}
	}
	if got, err := ParseEndClock("18:00:00"); err != nil || got != 18*60 {
		t.Fatalf("expected 18:00, got %d (%v)", got, err)
	}
	if _, err := ParseEndClock("24:30"); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("expected 24:30 rejected, got %v", err)
	}
}
