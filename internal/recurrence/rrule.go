package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrMalformed is wrapped by every error Parse returns.
var ErrMalformed = errors.New("malformed recurrence rule")

var dayNames = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

var dayAbbrev = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// Rule is one of Daily, Weekly or Monthly.
type Rule interface {
	// String serializes the rule back to its canonical rule string.
	String() string
	rule()
}

// Daily repeats every Interval days.
type Daily struct {
	Interval int
}

// Weekly repeats every Interval weeks on Days. Empty Days means the anchor's weekday.
type Weekly struct {
	Interval int
	Days     []time.Weekday
}

// Monthly repeats every Interval months on DaysOfMonth. Empty DaysOfMonth means
// the anchor's day of month.
type Monthly struct {
	Interval    int
	DaysOfMonth []int
}

func (Daily) rule()   {}
func (Weekly) rule()  {}
func (Monthly) rule() {}

// Parse parses a rule string like "FREQ=WEEKLY;BYDAY=MO,WE;INTERVAL=2".
// Keys and values are case-insensitive. Unknown keys are ignored.
func Parse(raw string) (Rule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty rule", ErrMalformed)
	}

	var (
		freq       string
		interval   = 1
		byDay      []time.Weekday
		byMonthDay []int
	)

	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		key = strings.ToUpper(strings.TrimSpace(key))
		val = strings.ToUpper(strings.TrimSpace(val))
		if !ok || key == "" || val == "" {
			return nil, fmt.Errorf("%w: invalid rule part %q", ErrMalformed, part)
		}

		switch key {
		case "FREQ":
			switch val {
			case "DAILY", "WEEKLY", "MONTHLY":
				freq = val
			default:
				return nil, fmt.Errorf("%w: unknown frequency %q", ErrMalformed, val)
			}

		case "INTERVAL":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: invalid interval %q", ErrMalformed, val)
			}
			interval = n

		case "BYDAY":
			byDay = byDay[:0]
			for _, d := range strings.Split(val, ",") {
				wd, ok := dayNames[strings.TrimSpace(d)]
				if !ok {
					return nil, fmt.Errorf("%w: unknown day %q", ErrMalformed, d)
				}
				if !slices.Contains(byDay, wd) {
					byDay = append(byDay, wd)
				}
			}

		case "BYMONTHDAY":
			byMonthDay = byMonthDay[:0]
			for _, d := range strings.Split(val, ",") {
				n, err := strconv.Atoi(strings.TrimSpace(d))
				if err != nil || n < 1 || n > 31 {
					return nil, fmt.Errorf("%w: invalid BYMONTHDAY %q", ErrMalformed, d)
				}
				if !slices.Contains(byMonthDay, n) {
					byMonthDay = append(byMonthDay, n)
				}
			}
		}
	}

	switch freq {
	case "DAILY":
		return Daily{Interval: interval}, nil
	case "WEEKLY":
		return Weekly{Interval: interval, Days: byDay}, nil
	case "MONTHLY":
		return Monthly{Interval: interval, DaysOfMonth: byMonthDay}, nil
	}
	return nil, fmt.Errorf("%w: FREQ is required", ErrMalformed)
}

func (r Daily) String() string {
	return "FREQ=DAILY" + intervalPart(r.Interval)
}

func (r Weekly) String() string {
	s := "FREQ=WEEKLY" + intervalPart(r.Interval)
	if len(r.Days) > 0 {
		days := make([]string, len(r.Days))
		for i, d := range r.Days {
			days[i] = dayAbbrev[d]
		}
		s += ";BYDAY=" + strings.Join(days, ",")
	}
	return s
}

func (r Monthly) String() string {
	s := "FREQ=MONTHLY" + intervalPart(r.Interval)
	if len(r.DaysOfMonth) > 0 {
		days := make([]string, len(r.DaysOfMonth))
		for i, d := range r.DaysOfMonth {
			days[i] = strconv.Itoa(d)
		}
		s += ";BYMONTHDAY=" + strings.Join(days, ",")
	}
	return s
}

func intervalPart(n int) string {
	if n > 1 {
		return fmt.Sprintf(";INTERVAL=%d", n)
	}
	return ""
}

// Describe returns a human-readable description of the rule.
func Describe(r Rule) string {
	switch r := r.(type) {
	case Daily:
		if r.Interval > 1 {
			return fmt.Sprintf("Repeats every %d days", r.Interval)
		}
		return "Repeats daily"
	case Weekly:
		prefix := "Repeats weekly"
		if r.Interval > 1 {
			prefix = fmt.Sprintf("Repeats every %d weeks", r.Interval)
		}
		if len(r.Days) > 0 {
			var names []string
			for _, d := range r.Days {
				names = append(names, d.String()[:3])
			}
			return prefix + " on " + strings.Join(names, ", ")
		}
		return prefix
	case Monthly:
		prefix := "Repeats monthly"
		if r.Interval > 1 {
			prefix = fmt.Sprintf("Repeats every %d months", r.Interval)
		}
		if len(r.DaysOfMonth) > 0 {
			var days []string
			for _, d := range r.DaysOfMonth {
				days = append(days, ordinal(d))
			}
			return prefix + " on the " + strings.Join(days, ", ")
		}
		return prefix
	}
	return ""
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return strconv.Itoa(n) + suffix
}
