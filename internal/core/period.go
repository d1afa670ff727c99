package core

import (
	"fmt"
	"strings"
	"time"
)

type ViewMode string

const (
	ViewWeek  ViewMode = "week"
	ViewMonth ViewMode = "month"
	ViewYear  ViewMode = "year"
)

func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ViewWeek, ViewMonth, ViewYear:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidViewMode, s)
}

// DateRange is an inclusive span of calendar dates. Treat it as a value.
type DateRange struct {
	Start DateKey `json:"startDate"`
	End   DateKey `json:"endDate"`
}

func (r DateRange) Contains(k DateKey) bool {
	return !k.Before(r.Start) && !k.After(r.End)
}

// Days is the number of dates in the range.
func (r DateRange) Days() int {
	return r.Start.DaysUntil(r.End) + 1
}

// Label renders the range for humans, e.g. "Jan 1 - Jan 7, 2024".
func (r DateRange) Label(mode ViewMode) string {
	switch mode {
	case ViewMonth:
		return r.Start.Time().Format("January 2006")
	case ViewYear:
		return r.Start.Time().Format("2006")
	}
	if r.Start.Year != r.End.Year {
		return r.Start.Time().Format("Jan 2, 2006") + " - " + r.End.Time().Format("Jan 2, 2006")
	}
	return r.Start.Time().Format("Jan 2") + " - " + r.End.Time().Format("Jan 2, 2006")
}

// PeriodFor returns the week (Monday to Sunday), calendar month or calendar
// year containing ref.
func PeriodFor(ref DateKey, mode ViewMode) DateRange {
	switch mode {
	case ViewMonth:
		start := NewDateKey(ref.Year, ref.Month, 1)
		return DateRange{Start: start, End: NewDateKey(ref.Year, ref.Month+1, 0)}
	case ViewYear:
		return DateRange{Start: NewDateKey(ref.Year, time.January, 1), End: NewDateKey(ref.Year, time.December, 31)}
	default:
		// Go's Sunday is 0; shift so Monday is the first day.
		offset := (int(ref.Weekday()) + 6) % 7
		start := ref.AddDays(-offset)
		return DateRange{Start: start, End: start.AddDays(6)}
	}
}

// PreviousPeriod shifts the reference one unit back and re-derives bounds.
func PreviousPeriod(r DateRange, mode ViewMode) DateRange {
	return PeriodFor(shift(r.Start, mode, -1), mode)
}

// NextPeriod shifts the reference one unit forward and re-derives bounds.
func NextPeriod(r DateRange, mode ViewMode) DateRange {
	return PeriodFor(shift(r.Start, mode, 1), mode)
}

func shift(ref DateKey, mode ViewMode, n int) DateKey {
	switch mode {
	case ViewMonth:
		// anchor on the 1st so Jan 31 + 1 month never lands in March
		return DateKeyOf(time.Date(ref.Year, ref.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
	case ViewYear:
		return NewDateKey(ref.Year+n, time.January, 1)
	default:
		return ref.AddDays(7 * n)
	}
}

// EnumerateDates lists every date from r.Start to r.End inclusive.
func EnumerateDates(r DateRange) []DateKey {
	if r.End.Before(r.Start) {
		return nil
	}
	out := make([]DateKey, 0, r.Days())
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}
