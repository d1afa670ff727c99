package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"workhours/internal/core"
	"workhours/internal/sources"
	"workhours/internal/storage"
)

// SyncStore is the slice of the SQLite repository the processor drives.
type SyncStore interface {
	DequeueSyncBatch(ctx context.Context, limit int) ([]storage.SyncItem, error)
	MarkSyncProcessing(ctx context.Context, id int64) error
	MarkSyncComplete(ctx context.Context, id int64) error
	MarkSyncFailed(ctx context.Context, id int64, msg string) error
	IncrementSyncAttempt(ctx context.Context, id int64, msg string) error
	ResetStaleProcessing(ctx context.Context) error
	CleanupCompletedSyncs(ctx context.Context, before time.Time) error
	RetryFailedSyncs(ctx context.Context) error
	GetSyncQueueStats(ctx context.Context) (storage.SyncQueueStats, error)

	GetDay(ctx context.Context, date core.DateKey) (storage.Day, error)
	MarkDaySynced(ctx context.Context, date core.DateKey, version int64) error
	MarkDaySyncError(ctx context.Context, date core.DateKey) error
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending items (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of items to process per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the maximum retry attempts before marking as failed (default: 3)
	MaxRetries int

	// CleanupInterval is how often to clean up completed items (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old completed items must be before cleanup (default: 24h)
	CleanupAge time.Duration
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval:    10 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
		CleanupInterval: 1 * time.Hour,
		CleanupAge:      24 * time.Hour,
	}
}

// SyncProcessor pushes locally changed extra minutes to the sheet by draining
// the SQLite sync queue. Tracked time belongs to the sheet and is never
// written back.
type SyncProcessor struct {
	store  SyncStore
	sheets sources.ExtraMinutesWriter
	config SyncProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(store SyncStore, sheetsWriter sources.ExtraMinutesWriter, config SyncProcessorConfig) *SyncProcessor {
	return &SyncProcessor{
		store:  store,
		sheets: sheetsWriter,
		config: config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	// items left in processing by a crash
	if err := p.store.ResetStaleProcessing(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to reset stale processing items", "error", err)
	}

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop signals the loop and waits for the current batch to finish.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.ProcessBatch(ctx)
		case <-cleanupTicker.C:
			p.cleanupCompleted(ctx)
		}
	}
}

// ProcessBatch drains one batch of due queue items and returns how many were
// synced successfully.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) int {
	items, err := p.store.DequeueSyncBatch(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to dequeue sync batch", "error", err)
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	slog.DebugContext(ctx, "Processing sync batch", "count", len(items))

	synced := 0
	for _, item := range items {
		select {
		case <-p.stopChan():
			return synced
		case <-ctx.Done():
			return synced
		default:
		}

		if err := p.store.MarkSyncProcessing(ctx, item.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark item as processing",
				"id", item.ID, "error", err)
			continue
		}

		if err := p.SyncDay(ctx, item.Date, item.Version); err != nil {
			p.handleFailure(ctx, item, err)
			continue
		}
		p.handleSuccess(ctx, item)
		synced++
	}
	return synced
}

// SyncDay pushes the stored extra minutes for date to the sheet. A version older than
// what is already synced is a no-op, so duplicate triggers from the queue and
// the message broker are harmless.
func (p *SyncProcessor) SyncDay(ctx context.Context, date core.DateKey, version int64) error {
	day, err := p.store.GetDay(ctx, date)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Work day vanished before sync", "date", date.String())
		return nil
	}
	if err != nil {
		return fmt.Errorf("get day %s: %w", date, err)
	}
	if day.SyncStatus == "synced" && day.Version >= version {
		slog.DebugContext(ctx, "Work day already synced", "date", date.String(), "version", day.Version)
		return nil
	}

	if p.sheets == nil {
		return fmt.Errorf("no sheet writer configured")
	}
	if err := p.sheets.UpdateExtraMinutes(ctx, date, int(day.Record.ExtraMinutes)); err != nil {
		return fmt.Errorf("update extra minutes in sheets: %w", err)
	}

	if err := p.store.MarkDaySynced(ctx, date, day.Version); err != nil {
		// the sheet already has the data
		slog.WarnContext(ctx, "Failed to mark day as synced",
			"date", date.String(), "error", err)
	}

	slog.InfoContext(ctx, "Synced work day to Google Sheets",
		"date", date.String(),
		"extra_minutes", int(day.Record.ExtraMinutes),
		"version", day.Version)
	return nil
}

func (p *SyncProcessor) stopChan() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopCh
}

func (p *SyncProcessor) handleSuccess(ctx context.Context, item storage.SyncItem) {
	if err := p.store.MarkSyncComplete(ctx, item.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark sync complete",
			"id", item.ID, "error", err)
	}
}

func (p *SyncProcessor) handleFailure(ctx context.Context, item storage.SyncItem, processErr error) {
	slog.WarnContext(ctx, "Sync processing failed",
		"id", item.ID,
		"date", item.Date.String(),
		"attempt", item.Attempts+1,
		"error", processErr)

	if item.Attempts+1 >= int64(p.config.MaxRetries) {
		if err := p.store.MarkSyncFailed(ctx, item.ID, processErr.Error()); err != nil {
			slog.ErrorContext(ctx, "Failed to mark sync as failed",
				"id", item.ID, "error", err)
		}
		if err := p.store.MarkDaySyncError(ctx, item.Date); err != nil {
			slog.ErrorContext(ctx, "Failed to mark day sync error",
				"date", item.Date.String(), "error", err)
		}

		slog.ErrorContext(ctx, "Sync item failed permanently after max retries",
			"id", item.ID,
			"date", item.Date.String(),
			"attempts", item.Attempts+1)
		return
	}

	if err := p.store.IncrementSyncAttempt(ctx, item.ID, processErr.Error()); err != nil {
		slog.ErrorContext(ctx, "Failed to increment sync attempt",
			"id", item.ID, "error", err)
	}
}

func (p *SyncProcessor) cleanupCompleted(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.CleanupAge)
	if err := p.store.CleanupCompletedSyncs(ctx, cutoff); err != nil {
		slog.ErrorContext(ctx, "Failed to cleanup completed syncs", "error", err)
	}
}

func (p *SyncProcessor) Stats(ctx context.Context) (storage.SyncQueueStats, error) {
	return p.store.GetSyncQueueStats(ctx)
}

// RetryFailed resets all failed items for retry
func (p *SyncProcessor) RetryFailed(ctx context.Context) error {
	return p.store.RetryFailedSyncs(ctx)
}
