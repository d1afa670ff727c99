package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workhours/internal/core"
)

func TestMergeNoOpOutsideRange(t *testing.T) {
	src := &fakeSource{}
	rec := NewTodayReconciler(src, fixedDay("2024-06-20"))
	r := week("2024-06-10")
	entries := Normalize(nil, r)

	got, widget := rec.Merge(context.Background(), entries, r)
	assert.Equal(t, entries, got)
	assert.Nil(t, widget)
	assert.Empty(t, src.calls(), "no live fetch when today is not visible")
}

func TestMergeFetchesYesterdayWhenTodayEmpty(t *testing.T) {
	src := &fakeSource{
		liveFn: func(_ context.Context, _ []core.DateKey) ([]core.RawRecord, error) {
			return []core.RawRecord{{Date: "10-06-2024", Hours: 2, Minutes: 15}}, nil
		},
	}
	rec := NewTodayReconciler(src, fixedDay("2024-06-10"))
	r := week("2024-06-10")
	entries := Normalize(nil, r)

	got, widget := rec.Merge(context.Background(), entries, r)

	calls := src.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []core.DateKey{core.MustParseDateKey("2024-06-09"), core.MustParseDateKey("2024-06-10")}, calls[0])

	require.Len(t, got, 7)
	assert.Equal(t, 135, got[0].Duration)
	require.NotNil(t, widget)
	assert.Equal(t, core.TodayWidget{Hours: 2, Minutes: 15, TotalMinutes: 135, DetailedWork: []core.WorkSession{}}, *widget)
	assert.Zero(t, entries[0].Duration, "input entries are not mutated")
}

func TestMergeFetchesOnlyTodayWhenDataPresent(t *testing.T) {
	src := &fakeSource{
		liveFn: func(_ context.Context, _ []core.DateKey) ([]core.RawRecord, error) {
			return []core.RawRecord{{Date: "12-06-2024", Hours: 5, ExtraMinutes: 20}}, nil
		},
	}
	rec := NewTodayReconciler(src, fixedDay("2024-06-12"))
	r := week("2024-06-10")
	entries := Normalize([]core.RawRecord{{Date: "2024-06-12", Hours: 3, StartTime: "09:10"}}, r)

	got, widget := rec.Merge(context.Background(), entries, r)

	require.Len(t, src.calls(), 1)
	assert.Equal(t, []core.DateKey{core.MustParseDateKey("2024-06-12")}, src.calls()[0])
	assert.Equal(t, 300, got[2].Duration)
	assert.Equal(t, 20, got[2].ExtraMinutes)
	assert.Equal(t, "09:10", got[2].StartTime, "fields the live source omits are kept")
	require.NotNil(t, widget)
	assert.Equal(t, 300, widget.TotalMinutes, "widget excludes extra minutes")
}

func TestMergeIsIdempotent(t *testing.T) {
	src := &fakeSource{
		liveFn: func(_ context.Context, _ []core.DateKey) ([]core.RawRecord, error) {
			return []core.RawRecord{
				{Date: "09-06-2024", Hours: 1},
				{Date: "10-06-2024", Hours: 2},
			}, nil
		},
	}
	rec := NewTodayReconciler(src, fixedDay("2024-06-10"))
	r := core.PeriodFor(core.MustParseDateKey("2024-06-10"), core.ViewMonth)
	entries := Normalize(nil, r)

	once, _ := rec.Merge(context.Background(), entries, r)
	twice, _ := rec.Merge(context.Background(), once, r)
	assert.Len(t, once, len(entries))
	assert.Equal(t, once, twice)
	assert.Equal(t, 60, once[8].Duration)
	assert.Equal(t, 120, once[9].Duration)
}

func TestMergeIgnoresYesterdayOutsideRange(t *testing.T) {
	src := &fakeSource{
		liveFn: func(_ context.Context, _ []core.DateKey) ([]core.RawRecord, error) {
			return []core.RawRecord{
				{Date: "09-06-2024", Hours: 1},
				{Date: "10-06-2024", Hours: 2},
			}, nil
		},
	}
	rec := NewTodayReconciler(src, fixedDay("2024-06-10"))
	r := week("2024-06-10") // today is Monday, yesterday belongs to the previous week

	got, widget := rec.Merge(context.Background(), Normalize(nil, r), r)
	require.Len(t, got, 7)
	assert.Equal(t, core.MustParseDateKey("2024-06-10"), got[0].Date)
	assert.NotNil(t, widget)
}

func TestMergeInsertsMissingEntrySorted(t *testing.T) {
	src := &fakeSource{
		liveFn: func(_ context.Context, _ []core.DateKey) ([]core.RawRecord, error) {
			return []core.RawRecord{{Date: "2024-06-12", Hours: 1}}, nil
		},
	}
	rec := NewTodayReconciler(src, fixedDay("2024-06-12"))
	r := week("2024-06-10")
	entries := []core.WorkEntry{
		{Date: core.MustParseDateKey("2024-06-10")},
		{Date: core.MustParseDateKey("2024-06-14")},
	}

	got, _ := rec.Merge(context.Background(), entries, r)
	require.Len(t, got, 3)
	assert.Equal(t, "2024-06-12", got[1].Date.String())
}

func TestMergeLiveFailureDegrades(t *testing.T) {
	src := &fakeSource{
		liveFn: func(_ context.Context, _ []core.DateKey) ([]core.RawRecord, error) {
			return nil, errors.New("tracker offline")
		},
	}
	rec := NewTodayReconciler(src, fixedDay("2024-06-10"))
	r := week("2024-06-10")
	entries := Normalize([]core.RawRecord{{Date: "2024-06-11", Hours: 1}}, r)

	got, widget := rec.Merge(context.Background(), entries, r)
	assert.Equal(t, entries, got)
	assert.Nil(t, widget)
}

func TestMergeWidgetSplitsOverflowingMinutes(t *testing.T) {
	src := &fakeSource{
		liveFn: func(_ context.Context, _ []core.DateKey) ([]core.RawRecord, error) {
			return []core.RawRecord{{Date: "10-06-2024", Hours: 0, Minutes: 135}}, nil
		},
	}
	rec := NewTodayReconciler(src, fixedDay("2024-06-10"))
	r := week("2024-06-10")

	_, widget := rec.Merge(context.Background(), Normalize(nil, r), r)

	require.NotNil(t, widget)
	assert.Equal(t, 2, widget.Hours)
	assert.Equal(t, 15, widget.Minutes)
	assert.Equal(t, 135, widget.TotalMinutes)
}
