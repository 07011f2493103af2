package progress

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAdvance_Transitions(t *testing.T) {
	today := time.Date(2025, 3, 10, 15, 4, 5, 0, time.UTC)
	cases := []struct {
		name        string
		in          State
		wantCurrent int
		wantLongest int
		wantChanged bool
	}{
		{"first activity", State{}, 1, 1, true},
		{"first activity keeps longer history", State{Longest: 7}, 1, 7, true},
		{"same day", State{Current: 3, Longest: 5, LastActivity: ptr(day(2025, 3, 10))}, 3, 5, false},
		{"next day", State{Current: 3, Longest: 3, LastActivity: ptr(day(2025, 3, 9))}, 4, 4, true},
		{"next day under longest", State{Current: 2, Longest: 9, LastActivity: ptr(day(2025, 3, 9))}, 3, 9, true},
		{"gap resets", State{Current: 6, Longest: 6, LastActivity: ptr(day(2025, 3, 7))}, 1, 6, true},
		{"future date ignored", State{Current: 2, Longest: 4, LastActivity: ptr(day(2025, 3, 12))}, 2, 4, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := Advance(tc.in, today)
			if changed != tc.wantChanged {
				t.Fatalf("changed=%v want %v", changed, tc.wantChanged)
			}
			if got.Current != tc.wantCurrent || got.Longest != tc.wantLongest {
				t.Fatalf("got current=%d longest=%d want %d/%d", got.Current, got.Longest, tc.wantCurrent, tc.wantLongest)
			}
			if got.Longest < got.Current {
				t.Fatalf("longest %d below current %d", got.Longest, got.Current)
			}
			if changed && !got.LastActivity.Equal(day(2025, 3, 10)) {
				t.Fatalf("last activity=%v", got.LastActivity)
			}
		})
	}
}

func TestAdvance_IdempotentWithinDay(t *testing.T) {
	start := State{Current: 4, Longest: 4, LastActivity: ptr(day(2025, 1, 1))}
	morning := time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 1, 2, 23, 59, 0, 0, time.UTC)

	once, _ := Advance(start, morning)
	twice, changed := Advance(once, evening)
	if changed {
		t.Fatalf("second advance on the same day should be a no-op")
	}
	if once.Current != 5 || twice.Current != once.Current {
		t.Fatalf("once=%d twice=%d", once.Current, twice.Current)
	}
}

func TestDaysBetween_UsesUTCCalendarDays(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	a := time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)
	b := time.Date(2025, 6, 1, 20, 0, 0, 0, est) // 01:00 UTC on June 2
	if got := DaysBetween(a, b); got != 1 {
		t.Fatalf("DaysBetween=%d want 1", got)
	}
	if got := DaysBetween(b, a); got != -1 {
		t.Fatalf("DaysBetween reversed=%d want -1", got)
	}
}

func ptr(t time.Time) *time.Time { return &t }
