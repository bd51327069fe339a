package recurrence

import (
	"slices"

	"github.com/dukerupert/choreboard/internal/calendar"
)

// maxSpanDays bounds Occurrences so a caller-supplied range cannot loop forever.
const maxSpanDays = 366

// OccursOn reports whether rule, anchored at anchor, has an occurrence on target.
// Nothing occurs before the anchor.
func OccursOn(rule Rule, anchor, target calendar.Date) bool {
	if target.Before(anchor) {
		return false
	}

	switch r := rule.(type) {
	case Daily:
		return target.DaysSince(anchor)%interval(r.Interval) == 0

	case Weekly:
		weeks := target.StartOfWeek().DaysSince(anchor.StartOfWeek()) / 7
		if weeks%interval(r.Interval) != 0 {
			return false
		}
		if len(r.Days) == 0 {
			return target.Weekday() == anchor.Weekday()
		}
		return slices.Contains(r.Days, target.Weekday())

	case Monthly:
		months := target.MonthIndex() - anchor.MonthIndex()
		if months%interval(r.Interval) != 0 {
			return false
		}
		if len(r.DaysOfMonth) == 0 {
			return target.Day == anchor.Day
		}
		return slices.Contains(r.DaysOfMonth, target.Day)
	}
	return false
}

// Occurrences returns every day in [from, to] on which rule occurs. The range
// is clipped to the anchor and to maxSpanDays.
func Occurrences(rule Rule, anchor, from, to calendar.Date) []calendar.Date {
	if from.Before(anchor) {
		from = anchor
	}
	if to.DaysSince(from) >= maxSpanDays {
		to = from.AddDays(maxSpanDays - 1)
	}

	var results []calendar.Date
	for d := from; !d.After(to); d = d.AddDays(1) {
		if OccursOn(rule, anchor, d) {
			results = append(results, d)
		}
	}
	return results
}

func interval(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
