package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"workhours/internal/core"
	"workhours/internal/sources"
)

// DayImporter stores tracked time read from the sheet. storage.SQLiteRepository
// implements it.
type DayImporter interface {
	ImportDay(ctx context.Context, rec core.RawRecord) error
}

// Importer copies recent days from the sheet into SQLite, so the local copy
// carries the tracked time the sheet owns.
type Importer struct {
	source sources.WorkDataSource
	store  DayImporter
	window int
	today  func() core.DateKey
}

// NewImporter returns an importer covering the window days ending today.
// A window below 1 disables it.
func NewImporter(source sources.WorkDataSource, store DayImporter, window int, today func() core.DateKey) *Importer {
	return &Importer{source: source, store: store, window: window, today: today}
}

// ImportRecent imports the window and returns how many days were stored.
// A bad row does not stop the rest; its error is joined into the result.
func (im *Importer) ImportRecent(ctx context.Context) (int, error) {
	if im.window < 1 {
		return 0, nil
	}
	end := im.today()
	start := end.AddDays(-(im.window - 1))

	recs, err := im.source.FetchRange(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("fetch %s..%s from sheet: %w", start, end, err)
	}

	var errs []error
	imported := 0
	for _, rec := range recs {
		if ctx.Err() != nil {
			return imported, ctx.Err()
		}
		if err := im.store.ImportDay(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("import %s: %w", rec.Date, err))
			continue
		}
		imported++
	}

	slog.DebugContext(ctx, "Imported days from sheet",
		"start", start.String(), "end", end.String(), "imported", imported, "errors", len(errs))
	return imported, errors.Join(errs...)
}
