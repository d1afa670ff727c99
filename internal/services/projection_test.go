package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"workhours/internal/core"
)

type stubSettings struct {
	rate    float64
	hours   int
	rateErr error
	hourErr error
}

func (s stubSettings) HourlyRate(context.Context) (float64, error) { return s.rate, s.rateErr }
func (s stubSettings) TargetHours(context.Context) (int, error)    { return s.hours, s.hourErr }
func (s stubSettings) SetTargetHours(context.Context, int) error   { return nil }

type stubCurrency struct {
	rate core.CurrencyRate
	err  error
}

func (s stubCurrency) Rate(context.Context) (core.CurrencyRate, error) { return s.rate, s.err }

func weekState() DashboardState {
	return DashboardState{
		Range:    core.PeriodFor(core.MustParseDateKey("2024-01-17"), core.ViewWeek),
		Current:  core.WorkPeriodTotals{TotalHours: 20},
		Previous: core.WorkPeriodTotals{TotalHours: 18, TotalMinutes: 30},
	}
}

func TestProjectionUsesSettingsAndCurrency(t *testing.T) {
	svc := NewProjectionService(
		stubSettings{rate: 50, hours: 40},
		stubCurrency{rate: core.CurrencyRate{Code: "EUR", Rate: 0.5}},
		core.Settings{HourlyRate: 10, TargetHours: 30},
		fixedDay("2024-01-17"),
	)

	p := svc.Project(t.Context(), weekState())

	assert.Equal(t, 1200, p.TotalMinutes)
	assert.InDelta(t, 1000, p.EarningsUSD, 1e-9)
	assert.InDelta(t, 500, p.EarningsLocal, 1e-9)
	assert.Equal(t, 50, p.ProgressPercent)
	assert.Equal(t, 5, p.RemainingDays)
	assert.InDelta(t, 4, p.RequiredHoursPerDay, 1e-9)
	assert.Equal(t, 90, p.DeltaMinutes)
}

func TestProjectionFallsBackToDefaults(t *testing.T) {
	boom := errors.New("boom")
	svc := NewProjectionService(
		stubSettings{rateErr: boom, hourErr: boom},
		stubCurrency{err: boom},
		core.Settings{HourlyRate: 10, TargetHours: 30},
		fixedDay("2024-02-01"),
	)

	p := svc.Project(t.Context(), weekState())

	assert.InDelta(t, 10, p.HourlyRate, 1e-9)
	assert.Equal(t, 30, p.TargetHours)
	assert.Zero(t, p.EarningsLocal)
	assert.Zero(t, p.RemainingDays, "today is outside the range")
}

func TestProjectionNilProviders(t *testing.T) {
	svc := NewProjectionService(nil, nil, core.Settings{HourlyRate: 25, TargetHours: 40}, fixedDay("2024-01-17"))

	assert.Equal(t, core.Settings{HourlyRate: 25, TargetHours: 40}, svc.Settings(t.Context()))
	assert.Equal(t, core.CurrencyRate{}, svc.Currency(t.Context()))
}

func TestReport(t *testing.T) {
	svc := NewProjectionService(stubSettings{rate: 50, hours: 40}, nil, core.Settings{}, fixedDay("2024-01-17"))

	report := svc.Report(t.Context(), weekState(), "Backend work")

	assert.Contains(t, report, "Period: 2024-01-15 to 2024-01-21")
	assert.Contains(t, report, "Description: Backend work")
	assert.Contains(t, report, "Total Hours: 20h 0m")
	assert.Contains(t, report, "Total Earnings: $1,000.00")
}
