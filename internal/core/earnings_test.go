package core

import (
	"math"
	"strings"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestEarnings(t *testing.T) {
	if got := Earnings(90, 50); !almostEqual(got, 75) {
		t.Errorf("Earnings = %v", got)
	}
	if got := ConvertedEarnings(60, 50, 110); !almostEqual(got, 5500) {
		t.Errorf("ConvertedEarnings = %v", got)
	}
}

func TestRemainingDaysInWeek(t *testing.T) {
	cases := map[string]int{
		"2024-06-10": 7, // Monday
		"2024-06-13": 4,
		"2024-06-16": 1, // Sunday
	}
	for d, want := range cases {
		if got := RemainingDaysInWeek(MustParseDateKey(d)); got != want {
			t.Errorf("%s: got %d want %d", d, got, want)
		}
	}
}

func TestRequiredHoursPerDay(t *testing.T) {
	cases := []struct {
		target, current, days int
		want                  float64
	}{
		{40, 0, 5, 8},
		{40, 30 * 60, 4, 2.5},
		{40, 40 * 60, 3, 0},
		{40, 45 * 60, 3, 0},
		{40, 0, 0, 0},
	}
	for i, tc := range cases {
		if got := RequiredHoursPerDay(tc.target, tc.current, tc.days); !almostEqual(got, tc.want) {
			t.Errorf("case %d: got %v want %v", i, got, tc.want)
		}
	}
}

func TestProgress(t *testing.T) {
	cases := []struct{ minutes, target, want int }{
		{0, 40, 0},
		{20 * 60, 40, 50},
		{50 * 60, 40, 100},
		{100, 0, 0},
		{13, 1, 22},
	}
	for _, tc := range cases {
		if got := Progress(tc.minutes, tc.target); got != tc.want {
			t.Errorf("Progress(%d, %d) = %d want %d", tc.minutes, tc.target, got, tc.want)
		}
	}
}

func TestProject(t *testing.T) {
	r := PeriodFor(MustParseDateKey("2024-06-12"), ViewWeek)
	cur := Aggregate([]WorkEntry{{Duration: 600}, {Duration: 0, ExtraMinutes: 60}})
	prev := Aggregate([]WorkEntry{{Duration: 300}})
	p := Project(r, cur, prev, Settings{HourlyRate: 50, TargetHours: 40}, CurrencyRate{Code: "EUR", Rate: 0.5}, MustParseDateKey("2024-06-12"))

	if p.TotalMinutes != 660 || !almostEqual(p.EarningsUSD, 550) || !almostEqual(p.EarningsLocal, 275) {
		t.Fatalf("unexpected money: %+v", p)
	}
	if p.RemainingDays != 5 {
		t.Errorf("RemainingDays = %d", p.RemainingDays)
	}
	if !almostEqual(p.RequiredHoursPerDay, (2400.0-660)/60/5) {
		t.Errorf("RequiredHoursPerDay = %v", p.RequiredHoursPerDay)
	}
	if p.DeltaMinutes != 360 {
		t.Errorf("DeltaMinutes = %d", p.DeltaMinutes)
	}

	past := Project(PreviousPeriod(r, ViewWeek), cur, prev, Settings{HourlyRate: 50, TargetHours: 40}, CurrencyRate{}, MustParseDateKey("2024-06-12"))
	if past.RemainingDays != 0 || past.RequiredHoursPerDay != 0 {
		t.Errorf("past period should have no remaining days: %+v", past)
	}
}

func TestWorkReport(t *testing.T) {
	r := DateRange{Start: MustParseDateKey("2024-01-01"), End: MustParseDateKey("2024-01-07")}
	out := WorkReport(r, 125, 50, CurrencyRate{Code: "BDT", Rate: 110}, "API work")
	for _, want := range []string{
		"Period: 2024-01-01 to 2024-01-07",
		"Description: API work",
		"Total Hours: 2h 5m",
		"Hourly Rate: $50.00/hr",
		"Total Earnings: $104.17 (BDT 11,458.33)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestFormatters(t *testing.T) {
	if FormatDuration(510) != "8h 30m" || FormatDuration(45) != "45m" || FormatDuration(480) != "8h" {
		t.Error("FormatDuration mismatch")
	}
	if MinutesToClock(65) != "01:05" {
		t.Error("MinutesToClock mismatch")
	}
	if FormatDecimalHours(90) != "1.50" {
		t.Error("FormatDecimalHours mismatch")
	}
	if FormatPercent(74.6) != "75%" {
		t.Error("FormatPercent mismatch")
	}
	if got := FormatNumber(1234567.891, 2); got != "1,234,567.89" {
		t.Errorf("FormatNumber = %s", got)
	}
	if got := FormatNumber(-12.5, 1); got != "-12.5" {
		t.Errorf("FormatNumber negative = %s", got)
	}
	if s, err := ParseClock("01:02:03"); err != nil || s != 3723 {
		t.Errorf("ParseClock = %d, %v", s, err)
	}
	if SecondsToClock(3723) != "01:02:03" {
		t.Error("SecondsToClock mismatch")
	}
}
