package progress

import (
	"time"

	"github.com/jinzhu/now"
)

// State is a learner's streak as stored on the user row.
type State struct {
	Current      int
	Longest      int
	LastActivity *time.Time
}

// Day truncates t to the start of its UTC calendar day.
func Day(t time.Time) time.Time {
	return now.With(t.UTC()).BeginningOfDay()
}

// DaysBetween counts calendar days from a to b in UTC. Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// Advance applies one day of activity on today. The bool is false when nothing changes:
// same-day repeats and activity dated before the last recorded day are both no-ops.
func Advance(s State, today time.Time) (State, bool) {
	day := Day(today)
	next := s
	next.LastActivity = &day

	if s.LastActivity == nil {
		next.Current = 1
		next.Longest = max(s.Longest, 1)
		return next, true
	}

	switch diff := DaysBetween(*s.LastActivity, day); {
	case diff == 0, diff < 0:
		return s, false
	case diff == 1:
		next.Current = s.Current + 1
	default:
		next.Current = 1
	}
	next.Longest = max(s.Longest, next.Current)
	return next, true
}
