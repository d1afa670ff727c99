package core

// WorkPeriodTotals is derived from a set of entries and never stored.
type WorkPeriodTotals struct {
	Entries      []WorkEntry `json:"entries"`
	TotalHours   int         `json:"totalHours"`
	TotalMinutes int         `json:"totalMinutes"` // 0-59
}

// RawMinutes returns TotalHours*60 + TotalMinutes.
func (t WorkPeriodTotals) RawMinutes() int {
	return t.TotalHours*60 + t.TotalMinutes
}

// Aggregate folds entries into totals. Tracked duration and extra minutes
// are summed; sub-session seconds are not part of the total.
func Aggregate(entries []WorkEntry) WorkPeriodTotals {
	total := 0
	for _, e := range entries {
		total += e.Duration + e.ExtraMinutes
	}
	return WorkPeriodTotals{
		Entries:      entries,
		TotalHours:   total / 60,
		TotalMinutes: total % 60,
	}
}

// DailyTotal is one row of a per-day breakdown.
type DailyTotal struct {
	Date    DateKey `json:"date"`
	Minutes int     `json:"minutes"`
}

// DailyTotals returns per-day totals (duration + extra minutes) sorted by date.
func DailyTotals(entries []WorkEntry) []DailyTotal {
	byDate := make(map[DateKey]int, len(entries))
	order := make([]DateKey, 0, len(entries))
	for _, e := range entries {
		if _, ok := byDate[e.Date]; !ok {
			order = append(order, e.Date)
		}
		byDate[e.Date] += e.TotalMinutes()
	}
	SortDateKeys(order)
	out := make([]DailyTotal, 0, len(order))
	for _, d := range order {
		out = append(out, DailyTotal{Date: d, Minutes: byDate[d]})
	}
	return out
}
