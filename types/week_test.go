package types

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeekOf(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"sunday opens the week", date(2025, time.February, 9), "2025-W07"},
		{"saturday closes it", date(2025, time.February, 15).Add(23 * time.Hour), "2025-W07"},
		{"next sunday", date(2025, time.February, 16), "2025-W08"},
		{"year boundary sunday", date(2024, time.December, 29), "2025-W01"},
		{"new year's day", date(2025, time.January, 1), "2025-W01"},
		{"53-week year", date(2020, time.December, 27), "2020-W53"},
		{"non-utc input", time.Date(2025, time.February, 15, 23, 30, 0, 0, time.FixedZone("EST", -5*3600)), "2025-W08"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekOf(tt.at).String(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWeekRange(t *testing.T) {
	w, err := ParseWeek("2025-W07")
	if err != nil {
		t.Fatal(err)
	}
	if !w.Start().Equal(date(2025, time.February, 9)) {
		t.Errorf("start: %v", w.Start())
	}
	if w.Start().Weekday() != time.Sunday {
		t.Errorf("start weekday: %v", w.Start().Weekday())
	}
	if !w.LastDay().Equal(date(2025, time.February, 15)) || w.LastDay().Weekday() != time.Saturday {
		t.Errorf("last day: %v", w.LastDay())
	}
	if !w.End().Equal(date(2025, time.February, 16)) {
		t.Errorf("end: %v", w.End())
	}
}

func TestParseWeekRejects(t *testing.T) {
	for _, s := range []string{"", "2025-07", "2025-W00", "2025-W54", "2025-W53", "garbage"} {
		if _, err := ParseWeek(s); err == nil {
			t.Errorf("ParseWeek(%q): expected error", s)
		}
	}
}

func TestWeekProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		secs := rapid.Int64Range(date(2000, 1, 1).Unix(), date(2100, 1, 1).Unix()).Draw(t, "unix")
		at := time.Unix(secs, 0).UTC()

		w := WeekOf(at)
		if at.Before(w.Start()) || !at.Before(w.End()) {
			t.Fatalf("%v not inside %s [%v, %v)", at, w, w.Start(), w.End())
		}
		parsed, err := ParseWeek(w.String())
		if err != nil || parsed != w {
			t.Fatalf("round trip of %s: %v %v", w, parsed, err)
		}
	})
}
