package core

import (
	"fmt"
	"math"
	"strings"
)

// Earnings converts worked minutes at an hourly rate into money.
func Earnings(totalMinutes int, hourlyRate float64) float64 {
	return float64(totalMinutes) / 60 * hourlyRate
}

// ConvertedEarnings is Earnings multiplied by a currency conversion rate.
func ConvertedEarnings(totalMinutes int, hourlyRate, rate float64) float64 {
	return Earnings(totalMinutes, hourlyRate) * rate
}

// RemainingDaysInWeek counts the days left in today's Monday-Sunday week,
// today included.
func RemainingDaysInWeek(today DateKey) int {
	week := PeriodFor(today, ViewWeek)
	return today.DaysUntil(week.End) + 1
}

// RequiredHoursPerDay is the average still needed per remaining day to hit
// the target. Zero once the target is met or no days remain.
func RequiredHoursPerDay(targetHours, currentMinutes, remainingDays int) float64 {
	if remainingDays <= 0 {
		return 0
	}
	remaining := targetHours*60 - currentMinutes
	if remaining <= 0 {
		return 0
	}
	return float64(remaining) / 60 / float64(remainingDays)
}

// Progress returns the rounded completion percentage, capped at 100.
func Progress(currentMinutes, targetHours int) int {
	target := targetHours * 60
	if target <= 0 {
		return 0
	}
	p := int(math.Round(float64(currentMinutes) / float64(target) * 100))
	return min(p, 100)
}

// Projection summarizes a period against rate, target and currency.
type Projection struct {
	Range               DateRange    `json:"range"`
	TotalMinutes        int          `json:"totalMinutes"`
	DecimalHours        float64      `json:"decimalHours"`
	HourlyRate          float64      `json:"hourlyRate"`
	TargetHours         int          `json:"targetHours"`
	EarningsUSD         float64      `json:"earningsUsd"`
	Currency            CurrencyRate `json:"currency"`
	EarningsLocal       float64      `json:"earningsLocal"`
	ProgressPercent     int          `json:"progressPercent"`
	RemainingDays       int          `json:"remainingDays"`
	RequiredHoursPerDay float64      `json:"requiredHoursPerDay"`
	PreviousMinutes     int          `json:"previousMinutes"`
	DeltaMinutes        int          `json:"deltaMinutes"`
}

// Project builds a Projection. Remaining days are only meaningful when today
// falls inside the range; otherwise they are zero.
func Project(r DateRange, current, previous WorkPeriodTotals, settings Settings, cur CurrencyRate, today DateKey) Projection {
	minutes := current.RawMinutes()
	p := Projection{
		Range:           r,
		TotalMinutes:    minutes,
		DecimalHours:    float64(minutes) / 60,
		HourlyRate:      settings.HourlyRate,
		TargetHours:     settings.TargetHours,
		EarningsUSD:     Earnings(minutes, settings.HourlyRate),
		Currency:        cur,
		EarningsLocal:   ConvertedEarnings(minutes, settings.HourlyRate, cur.Rate),
		ProgressPercent: Progress(minutes, settings.TargetHours),
		PreviousMinutes: previous.RawMinutes(),
		DeltaMinutes:    minutes - previous.RawMinutes(),
	}
	if r.Contains(today) {
		p.RemainingDays = min(RemainingDaysInWeek(today), today.DaysUntil(r.End)+1)
		p.RequiredHoursPerDay = RequiredHoursPerDay(settings.TargetHours, minutes, p.RemainingDays)
	}
	return p
}

// WorkReport renders a plain-text report for a period.
func WorkReport(r DateRange, totalMinutes int, hourlyRate float64, cur CurrencyRate, description string) string {
	var b strings.Builder
	b.WriteString("Work Report\n")
	fmt.Fprintf(&b, "Period: %s to %s\n\n", r.Start, r.End)
	if d := strings.TrimSpace(description); d != "" {
		fmt.Fprintf(&b, "Description: %s\n\n", d)
	}
	fmt.Fprintf(&b, "Total Hours: %dh %dm\n", totalMinutes/60, totalMinutes%60)
	fmt.Fprintf(&b, "Hourly Rate: $%s/hr\n", FormatNumber(hourlyRate, 2))
	fmt.Fprintf(&b, "Total Earnings: $%s", FormatNumber(Earnings(totalMinutes, hourlyRate), 2))
	if cur.Code != "" && cur.Rate > 0 {
		fmt.Fprintf(&b, " (%s %s)", cur.Code, FormatNumber(ConvertedEarnings(totalMinutes, hourlyRate, cur.Rate), 2))
	}
	b.WriteString("\n")
	return b.String()
}
