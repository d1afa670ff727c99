package worker

import (
	"context"
	"fmt"
	"log/slog"

	"workhours/internal/amqp"
	"workhours/internal/core"
	"workhours/internal/storage"
)

// DaySyncer pushes one stored day to the sheet. services.SyncProcessor implements it.
type DaySyncer interface {
	SyncDay(ctx context.Context, date core.DateKey, version int64) error
}

type PendingStore interface {
	PendingDays(ctx context.Context, limit int) ([]storage.Day, error)
	MarkDaySyncError(ctx context.Context, date core.DateKey) error
}

// SyncWorker reacts to broker messages and sweeps for days the broker missed.
type SyncWorker struct {
	syncer    DaySyncer
	store     PendingStore
	batchSize int
}

func NewSyncWorker(syncer DaySyncer, store PendingStore, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{syncer: syncer, store: store, batchSize: batchSize}
}

// HandleSyncMessage processes a single day sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.DaySyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"message_id", msg.MessageID,
		"date", msg.Date,
		"version", msg.Version)

	date, err := msg.DateKey()
	if err != nil {
		return fmt.Errorf("message date: %w", err)
	}
	if err := w.syncer.SyncDay(ctx, date, msg.Version); err != nil {
		return fmt.Errorf("sync day to sheets: %w", err)
	}
	return nil
}

// ProcessPendingDays syncs days that are still marked unsynced.
// It is the backup path for lost AMQP messages.
func (w *SyncWorker) ProcessPendingDays(ctx context.Context) (synced, failed int, err error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck sweeps a larger batch once, to catch up after downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced+failed == 0 {
		slog.InfoContext(ctx, "No pending days found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"total", synced+failed,
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (synced, failed int, err error) {
	days, err := w.store.PendingDays(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending days: %w", err)
	}
	if len(days) == 0 {
		return 0, 0, nil
	}

	slog.InfoContext(ctx, "Processing pending days", "count", len(days))

	for _, day := range days {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		date, err := core.ParseDateKey(day.Record.Date)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping pending day with bad date", "date", day.Record.Date, "error", err)
			failed++
			continue
		}
		if err := w.syncer.SyncDay(ctx, date, day.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to sync day", "date", date.String(), "error", err)
			if markErr := w.store.MarkDaySyncError(ctx, date); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "date", date.String(), "error", markErr)
			}
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}
