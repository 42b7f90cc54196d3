package scheduler

import (
	"time"

	"github.com/tubeq/tubeq/internal/engine/types"
)

// Next returns the trigger time following t for the given recurrence, and
// false for one-shot entries. Monthly recurrence keeps the day of month,
// clamped to the last day of shorter months (Jan 31 -> Feb 28/29).
func Next(t time.Time, r types.Recurrence) (time.Time, bool) {
	switch r {
	case types.RecurrenceDaily:
		return t.AddDate(0, 0, 1), true
	case types.RecurrenceWeekly:
		return t.AddDate(0, 0, 7), true
	case types.RecurrenceMonthly:
		return addMonthsClamped(t, 1), true
	}
	return time.Time{}, false
}

func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	first := time.Date(y, m+time.Month(n), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
