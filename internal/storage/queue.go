package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"workhours/internal/core"
)

// SyncItem is a queued request to push one day version to the sheet.
type SyncItem struct {
	ID        int64
	Date      core.DateKey
	Version   int64
	Status    string
	Attempts  int64
	LastError string
}

type SyncQueueStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

func enqueue(ctx context.Context, tx *sql.Tx, date core.DateKey, version int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sync_queue (date, version, next_attempt_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		date.String(), version, now(), now(), now())
	if err != nil {
		return fmt.Errorf("enqueue sync for %s: %w", date, err)
	}
	return nil
}

// DequeueSyncBatch returns up to limit pending items that are due.
func (r *SQLiteRepository) DequeueSyncBatch(ctx context.Context, limit int) ([]SyncItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, version, status, attempts, last_error FROM sync_queue
		WHERE status = 'pending' AND next_attempt_at <= ?
		ORDER BY id LIMIT ?`, now(), limit)
	if err != nil {
		return nil, fmt.Errorf("dequeue sync batch: %w", err)
	}
	defer rows.Close()

	var out []SyncItem
	for rows.Next() {
		var (
			it   SyncItem
			date string
		)
		if err := rows.Scan(&it.ID, &date, &it.Version, &it.Status, &it.Attempts, &it.LastError); err != nil {
			return nil, fmt.Errorf("scan sync item: %w", err)
		}
		if it.Date, err = core.ParseDateKey(date); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkSyncProcessing(ctx context.Context, id int64) error {
	return r.setQueueStatus(ctx, id, "processing", "")
}

func (r *SQLiteRepository) MarkSyncComplete(ctx context.Context, id int64) error {
	return r.setQueueStatus(ctx, id, "completed", "")
}

func (r *SQLiteRepository) MarkSyncFailed(ctx context.Context, id int64, msg string) error {
	return r.setQueueStatus(ctx, id, "failed", msg)
}

// IncrementSyncAttempt puts the item back to pending with an exponential
// delay: 30s, 60s, 120s...
func (r *SQLiteRepository) IncrementSyncAttempt(ctx context.Context, id int64, msg string) error {
	var attempts int64
	if err := r.db.QueryRowContext(ctx, `SELECT attempts FROM sync_queue WHERE id = ?`, id).Scan(&attempts); err != nil {
		return fmt.Errorf("read attempts for %d: %w", id, err)
	}
	delay := 30 * time.Second << min(attempts, 10)
	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET status = 'pending', attempts = attempts + 1, last_error = ?, next_attempt_at = ?, updated_at = ?
		WHERE id = ?`,
		msg, time.Now().UTC().Add(delay).Format(timeLayout), now(), id)
	if err != nil {
		return fmt.Errorf("increment attempt for %d: %w", id, err)
	}
	return nil
}

// ResetStaleProcessing returns items left in processing by a crash to pending.
func (r *SQLiteRepository) ResetStaleProcessing(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sync_queue SET status = 'pending', updated_at = ? WHERE status = 'processing'`, now())
	if err != nil {
		return fmt.Errorf("reset stale processing: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CleanupCompletedSyncs(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE status = 'completed' AND updated_at < ?`,
		before.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("cleanup completed syncs: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RetryFailedSyncs(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET status = 'pending', attempts = 0, next_attempt_at = ?, updated_at = ?
		WHERE status = 'failed'`, now(), now())
	if err != nil {
		return fmt.Errorf("retry failed syncs: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSyncQueueStats(ctx context.Context) (SyncQueueStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_queue GROUP BY status`)
	if err != nil {
		return SyncQueueStats{}, fmt.Errorf("sync queue stats: %w", err)
	}
	defer rows.Close()

	var st SyncQueueStats
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return SyncQueueStats{}, fmt.Errorf("scan sync queue stats: %w", err)
		}
		switch status {
		case "pending":
			st.Pending = n
		case "processing":
			st.Processing = n
		case "completed":
			st.Completed = n
		case "failed":
			st.Failed = n
		}
	}
	return st, rows.Err()
}

func (r *SQLiteRepository) setQueueStatus(ctx context.Context, id int64, status, msg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		status, msg, now(), id)
	if err != nil {
		return fmt.Errorf("set sync item %d to %s: %w", id, status, err)
	}
	return nil
}
