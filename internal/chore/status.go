package chore

import (
	"strings"

	"github.com/dukerupert/choreboard/internal/calendar"
	"github.com/dukerupert/choreboard/internal/model"
	"github.com/dukerupert/choreboard/internal/recurrence"
)

// Eligible reports whether the chore is due on day.
//
// Without a recurrence rule a chore with no start date is due every day, and
// one with a start date is due on that date only. A recurring chore is
// anchored at its start date, or at its creation date when it has none.
// A malformed rule returns an error wrapping recurrence.ErrMalformed.
func Eligible(c model.Chore, day calendar.Date) (bool, error) {
	if strings.TrimSpace(c.RecurrenceRule) == "" {
		if c.StartDate.IsZero() {
			return true, nil
		}
		return day == c.StartDate, nil
	}

	rule, err := recurrence.Parse(c.RecurrenceRule)
	if err != nil {
		return false, err
	}
	return recurrence.OccursOn(rule, Anchor(c), day), nil
}

// Anchor returns the date recurrence math for c is computed from.
func Anchor(c model.Chore) calendar.Date {
	if !c.StartDate.IsZero() {
		return c.StartDate
	}
	return calendar.Of(c.CreatedAt.UTC())
}

// Schedule lists the days in [from, to] on which c is due. Ranges longer
// than a year are truncated.
func Schedule(c model.Chore, from, to calendar.Date) ([]calendar.Date, error) {
	if strings.TrimSpace(c.RecurrenceRule) != "" {
		rule, err := recurrence.Parse(c.RecurrenceRule)
		if err != nil {
			return nil, err
		}
		return recurrence.Occurrences(rule, Anchor(c), from, to), nil
	}

	if !c.StartDate.IsZero() {
		if c.StartDate.Before(from) || c.StartDate.After(to) {
			return nil, nil
		}
		return []calendar.Date{c.StartDate}, nil
	}

	var days []calendar.Date
	for d := from; !d.After(to) && len(days) < 366; d = d.AddDays(1) {
		days = append(days, d)
	}
	return days, nil
}
