package types

import (
	"fmt"
	"time"
)

// Week is an invoicing period running Sunday 00:00 UTC through Saturday.
// It is labelled with the ISO year-week of the Monday that follows its
// Sunday, so "2025-W07" covers Sun 9 Feb 2025 through Sat 15 Feb 2025.
type Week struct {
	Year   int
	Number int
}

// WeekOf returns the Sunday-anchored week containing t (evaluated in UTC).
func WeekOf(t time.Time) Week {
	start := sundayOnOrBefore(t)
	y, n := start.AddDate(0, 0, 1).ISOWeek()
	return Week{Year: y, Number: n}
}

// ParseWeek parses the "YYYY-Www" form produced by Week.String.
func ParseWeek(s string) (Week, error) {
	var w Week
	if _, err := fmt.Sscanf(s, "%04d-W%02d", &w.Year, &w.Number); err != nil {
		return Week{}, fmt.Errorf("types: parse week %q: %w", s, err)
	}
	if w.Number < 1 || w.Number > 53 || WeekOf(w.Start()) != w {
		return Week{}, fmt.Errorf("types: parse week %q: no such week", s)
	}
	return w, nil
}

// Start returns Sunday 00:00 UTC of the week.
func (w Week) Start() time.Time {
	// ISO week 1 is the week containing January 4th.
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	monday := jan4.AddDate(0, 0, -((int(jan4.Weekday()) + 6) % 7))
	return monday.AddDate(0, 0, (w.Number-1)*7-1)
}

// End returns the exclusive end of the week (the following Sunday 00:00 UTC).
func (w Week) End() time.Time { return w.Start().AddDate(0, 0, 7) }

// LastDay returns Saturday 00:00 UTC of the week.
func (w Week) LastDay() time.Time { return w.Start().AddDate(0, 0, 6) }

// Contains reports whether t falls inside the week.
func (w Week) Contains(t time.Time) bool { return WeekOf(t) == w }

// IsZero reports whether w is the zero Week.
func (w Week) IsZero() bool { return w.Year == 0 && w.Number == 0 }

// Before reports whether w precedes other.
func (w Week) Before(other Week) bool {
	if w.Year != other.Year {
		return w.Year < other.Year
	}
	return w.Number < other.Number
}

func (w Week) String() string { return fmt.Sprintf("%04d-W%02d", w.Year, w.Number) }

// MarshalText implements encoding.TextMarshaler. The zero Week encodes as "".
func (w Week) MarshalText() ([]byte, error) {
	if w.IsZero() {
		return []byte{}, nil
	}
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *Week) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*w = Week{}
		return nil
	}
	parsed, err := ParseWeek(string(data))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

func sundayOnOrBefore(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -int(day.Weekday()))
}
