package services

import (
	"context"
	"log/slog"
	"slices"

	"workhours/internal/core"
)

// LiveFetcher is the part of a data source used for the today refresh.
type LiveFetcher interface {
	FetchLive(ctx context.Context, dates []core.DateKey) ([]core.RawRecord, error)
}

// TodayReconciler refreshes today's entry of a period from a live source.
type TodayReconciler struct {
	source LiveFetcher
	today  func() core.DateKey
}

func NewTodayReconciler(source LiveFetcher, today func() core.DateKey) *TodayReconciler {
	return &TodayReconciler{source: source, today: today}
}

// Merge patches live data into entries and returns the result together with
// a snapshot of today. The input slice is not modified. When today is
// outside r, or the live fetch fails, entries are returned as they are and
// the widget is nil.
func (t *TodayReconciler) Merge(ctx context.Context, entries []core.WorkEntry, r core.DateRange) ([]core.WorkEntry, *core.TodayWidget) {
	today := t.today()
	if !r.Contains(today) {
		return entries, nil
	}

	// When today has nothing yet the tracker may not have rolled over, so
	// yesterday is pulled as well.
	dates := []core.DateKey{today}
	if i := indexOf(entries, today); i < 0 || !entries[i].HasData() {
		dates = []core.DateKey{today.AddDays(-1), today}
	}

	live, err := t.source.FetchLive(ctx, dates)
	if err != nil {
		slog.WarnContext(ctx, "Live refresh failed, keeping period data",
			"today", today.String(), "error", err)
		return entries, nil
	}

	merged := slices.Clone(entries)
	var widget *core.TodayWidget
	for _, rec := range live {
		d, err := core.ParseDateKey(rec.Date)
		if err != nil {
			slog.DebugContext(ctx, "Ignoring live record with invalid date", "date", rec.Date)
			continue
		}
		if !r.Contains(d) {
			continue
		}
		fresh := ToEntry(d, rec)
		if i := indexOf(merged, d); i >= 0 {
			merged[i] = patch(merged[i], fresh)
		} else {
			merged = insertSorted(merged, fresh)
		}
		if d == today {
			widget = &core.TodayWidget{
				Hours:        fresh.Duration / 60,
				Minutes:      fresh.Duration % 60,
				TotalMinutes: fresh.Duration,
				DetailedWork: fresh.DetailedWork,
			}
		}
	}
	return merged, widget
}

// patch overwrites the live fields and keeps clock times the live source
// did not send.
func patch(cur, fresh core.WorkEntry) core.WorkEntry {
	cur.Duration = fresh.Duration
	cur.ExtraMinutes = fresh.ExtraMinutes
	cur.DetailedWork = fresh.DetailedWork
	cur.Description = fresh.Description
	if fresh.StartTime != "" {
		cur.StartTime = fresh.StartTime
	}
	if fresh.EndTime != "" {
		cur.EndTime = fresh.EndTime
	}
	return cur
}

func indexOf(entries []core.WorkEntry, d core.DateKey) int {
	return slices.IndexFunc(entries, func(e core.WorkEntry) bool { return e.Date == d })
}

func insertSorted(entries []core.WorkEntry, e core.WorkEntry) []core.WorkEntry {
	i, _ := slices.BinarySearchFunc(entries, e.Date, func(x core.WorkEntry, d core.DateKey) int {
		return x.Date.Compare(d)
	})
	return slices.Insert(entries, i, e)
}
