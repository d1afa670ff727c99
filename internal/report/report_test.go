package report

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workhours/internal/core"
)

var reportToday = core.MustParseDateKey("2024-03-06")

type stubSource struct {
	records map[core.DateKey]core.RawRecord
	fail    error
}

func newStubSource() *stubSource {
	return &stubSource{records: map[core.DateKey]core.RawRecord{
		core.MustParseDateKey("2024-03-04"): {Date: "2024-03-04", Hours: 8, Minutes: 15, ExtraMinutes: 30},
		core.MustParseDateKey("2024-03-06"): {Date: "06-03-2024", Hours: 2, Minutes: 5},
	}}
}

func (s *stubSource) FetchRange(_ context.Context, start, end core.DateKey) ([]core.RawRecord, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	var out []core.RawRecord
	for d, rec := range s.records {
		if !d.Before(start) && !d.After(end) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubSource) FetchLive(_ context.Context, dates []core.DateKey) ([]core.RawRecord, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	var out []core.RawRecord
	for _, d := range dates {
		if rec, ok := s.records[d]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubSource) HourlyRate(context.Context) (float64, error) { return 50, nil }
func (s *stubSource) TargetHours(context.Context) (int, error)    { return 40, nil }
func (s *stubSource) SetTargetHours(context.Context, int) error   { return nil }
func (s *stubSource) Rate(context.Context) (core.CurrencyRate, error) {
	return core.CurrencyRate{Code: "EUR", Rate: 0.9}, nil
}

func execute(t *testing.T, src *stubSource, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(&App{
		Source:   src,
		Settings: src,
		Currency: src,
		Defaults: core.Settings{HourlyRate: 10, TargetHours: 20},
		Today:    func() core.DateKey { return reportToday },
		Out:      &out,
	})
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestWeekSummary(t *testing.T) {
	out, err := execute(t, newStubSource(), "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "Mar 4 - Mar 10, 2024")
	assert.Contains(t, out, "10h 50m")
	assert.Contains(t, out, "10.83")
	assert.Contains(t, out, "$541.67")
	assert.Contains(t, out, "EUR 487.50")
	assert.Contains(t, out, "40h (27%)")
	assert.Contains(t, out, "5.8h/day for 5 days")
	assert.NotContains(t, out, "2024-03-04")
}

func TestDayBreakdown(t *testing.T) {
	out, err := execute(t, newStubSource(), "week", "--days", "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "2024-03-04")
	assert.Contains(t, out, "8h 45m")
	assert.Contains(t, out, "2024-03-10")
}

func TestOverrides(t *testing.T) {
	out, err := execute(t, newStubSource(), "--rate", "60", "--target", "20", "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "$650.00")
	assert.Contains(t, out, "20h (54%)")
}

func TestTextReport(t *testing.T) {
	out, err := execute(t, newStubSource(), "--text", "--description", "  March invoice ")
	require.NoError(t, err)

	assert.Contains(t, out, "Period: 2024-03-04 to 2024-03-10")
	assert.Contains(t, out, "Description: March invoice")
	assert.Contains(t, out, "Total Hours: 10h 50m")
	assert.Contains(t, out, "Total Earnings: $541.67 (EUR 487.50)")
}

func TestOtherPeriod(t *testing.T) {
	out, err := execute(t, newStubSource(), "month", "--date", "10-02-2024", "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "February 2024")
	assert.Contains(t, out, "Total")
	assert.NotContains(t, out, "Target")
	assert.NotContains(t, out, "10h 50m")
}

func TestInvalidInput(t *testing.T) {
	for _, args := range [][]string{
		{"decade"},
		{"--date", "yesterday"},
		{"--target", "200"},
		{"week", "month"},
	} {
		_, err := execute(t, newStubSource(), args...)
		assert.Error(t, err, "args %v", args)
	}
}

func TestSourceFailure(t *testing.T) {
	src := newStubSource()
	src.fail = errors.New("backend down")
	_, err := execute(t, src)
	assert.Error(t, err)
}
