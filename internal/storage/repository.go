package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"workhours/internal/core"

	_ "modernc.org/sqlite"
)

// timeLayout matches SQLite's CURRENT_TIMESTAMP so values compare as text.
const timeLayout = "2006-01-02 15:04:05"

const (
	settingHourlyRate  = "hourly_rate"
	settingTargetHours = "target_hours"
)

var ErrNotFound = errors.New("not found")

// Day is a stored work day.
type Day struct {
	Record     core.RawRecord
	Version    int64
	SyncStatus string
	UpdatedAt  time.Time
}

type SQLiteRepository struct {
	db       *sql.DB
	defaults core.Settings
}

func NewSQLiteRepository(dbPath string, defaults core.Settings) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between our own goroutines
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, defaults: defaults}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const dayColumns = `date, hours, minutes, seconds, extra_minutes, detailed_work, description, start_time, end_time, version, sync_status, updated_at`

// FetchRange implements sources.WorkDataSource. Missing days are simply
// absent from the result.
func (r *SQLiteRepository) FetchRange(ctx context.Context, start, end core.DateKey) ([]core.RawRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+dayColumns+` FROM work_days WHERE date BETWEEN ? AND ? ORDER BY date`,
		start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("query work days: %w", err)
	}
	defer rows.Close()

	var out []core.RawRecord
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d.Record)
	}
	return out, rows.Err()
}

// FetchLive implements sources.WorkDataSource. Dates come back as
// dd-mm-yyyy, like the legacy worktime endpoint.
func (r *SQLiteRepository) FetchLive(ctx context.Context, dates []core.DateKey) ([]core.RawRecord, error) {
	out := make([]core.RawRecord, 0, len(dates))
	for _, date := range dates {
		d, err := r.GetDay(ctx, date)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		d.Record.Date = date.APIString()
		out = append(out, d.Record)
	}
	return out, nil
}

func (r *SQLiteRepository) GetDay(ctx context.Context, date core.DateKey) (Day, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+dayColumns+` FROM work_days WHERE date = ?`, date.String())
	d, err := scanDay(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Day{}, fmt.Errorf("day %s: %w", date, ErrNotFound)
	}
	return d, err
}

// ImportDay stores the tracked fields of a day read from the sheet. It
// neither bumps the version nor queues a sync. Extra minutes are taken from
// the sheet only while the local copy is synced, so an unsent local edit is
// never replaced by the older sheet value.
func (r *SQLiteRepository) ImportDay(ctx context.Context, rec core.RawRecord) error {
	date, err := core.ParseDateKey(rec.Date)
	if err != nil {
		return err
	}
	detailed := string(rec.DetailedWork)
	if detailed == "" {
		detailed = "[]"
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO work_days (date, hours, minutes, seconds, extra_minutes, detailed_work, description, start_time, end_time, sync_status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'synced', ?)
		ON CONFLICT(date) DO UPDATE SET
			hours = excluded.hours,
			minutes = excluded.minutes,
			seconds = excluded.seconds,
			detailed_work = excluded.detailed_work,
			description = excluded.description,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			extra_minutes = CASE WHEN work_days.sync_status = 'synced' THEN excluded.extra_minutes ELSE work_days.extra_minutes END,
			updated_at = excluded.updated_at`,
		date.String(), int(rec.Hours), int(rec.Minutes), int(rec.Seconds), int(rec.ExtraMinutes),
		detailed, rec.Description, rec.StartTime, rec.EndTime, now(),
	)
	if err != nil {
		return fmt.Errorf("import day %s: %w", date, err)
	}
	return nil
}

// UpdateExtraMinutes implements sources.ExtraMinutesWriter and returns
// nothing but an error; use UpdateExtraMinutesVersion to learn the version.
func (r *SQLiteRepository) UpdateExtraMinutes(ctx context.Context, date core.DateKey, minutes int) error {
	_, err := r.UpdateExtraMinutesVersion(ctx, date, minutes)
	return err
}

// UpdateExtraMinutesVersion sets extra minutes for date, creating an empty
// day if needed, and queues a sync for the new version.
func (r *SQLiteRepository) UpdateExtraMinutesVersion(ctx context.Context, date core.DateKey, minutes int) (int64, error) {
	if err := core.ValidateExtraMinutes(minutes); err != nil {
		return 0, err
	}
	var version int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO work_days (date, extra_minutes, sync_status, updated_at)
			VALUES (?, ?, 'pending', ?)
			ON CONFLICT(date) DO UPDATE SET
				extra_minutes = excluded.extra_minutes,
				version = work_days.version + 1,
				sync_status = 'pending',
				updated_at = excluded.updated_at
			RETURNING version`,
			date.String(), minutes, now(),
		).Scan(&version)
		if err != nil {
			return fmt.Errorf("update extra minutes for %s: %w", date, err)
		}
		return enqueue(ctx, tx, date, version)
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Extra minutes saved to SQLite",
		"date", date.String(), "minutes", minutes, "version", version)
	return version, nil
}

// MarkDaySynced flags the day as synced if it is still at version.
func (r *SQLiteRepository) MarkDaySynced(ctx context.Context, date core.DateKey, version int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE work_days SET sync_status = 'synced' WHERE date = ? AND version = ?`,
		date.String(), version)
	if err != nil {
		return fmt.Errorf("mark day %s synced: %w", date, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkDaySyncError(ctx context.Context, date core.DateKey) error {
	_, err := r.db.ExecContext(ctx, `UPDATE work_days SET sync_status = 'error' WHERE date = ?`, date.String())
	if err != nil {
		return fmt.Errorf("mark day %s sync error: %w", date, err)
	}
	return nil
}

// PendingDays lists days not yet synced, oldest change first.
func (r *SQLiteRepository) PendingDays(ctx context.Context, limit int) ([]Day, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+dayColumns+` FROM work_days WHERE sync_status != 'synced' ORDER BY updated_at, date LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending days: %w", err)
	}
	defer rows.Close()

	var out []Day
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// HourlyRate implements sources.SettingsStore.
func (r *SQLiteRepository) HourlyRate(ctx context.Context) (float64, error) {
	v, err := r.setting(ctx, settingHourlyRate)
	if errors.Is(err, ErrNotFound) {
		return r.defaults.HourlyRate, nil
	}
	if err != nil {
		return 0, err
	}
	rate, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hourly rate %q: %w", v, err)
	}
	return rate, nil
}

func (r *SQLiteRepository) SetHourlyRate(ctx context.Context, rate float64) error {
	if rate < 0 {
		return fmt.Errorf("hourly rate must not be negative")
	}
	return r.setSetting(ctx, settingHourlyRate, strconv.FormatFloat(rate, 'f', -1, 64))
}

// TargetHours implements sources.SettingsStore.
func (r *SQLiteRepository) TargetHours(ctx context.Context) (int, error) {
	v, err := r.setting(ctx, settingTargetHours)
	if errors.Is(err, ErrNotFound) {
		return r.defaults.TargetHours, nil
	}
	if err != nil {
		return 0, err
	}
	hours, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse target hours %q: %w", v, err)
	}
	return hours, nil
}

// SetTargetHours implements sources.SettingsStore.
func (r *SQLiteRepository) SetTargetHours(ctx context.Context, hours int) error {
	if err := core.ValidateTargetHours(hours); err != nil {
		return err
	}
	return r.setSetting(ctx, settingTargetHours, strconv.Itoa(hours))
}

func (r *SQLiteRepository) setting(ctx context.Context, key string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return v, nil
}

func (r *SQLiteRepository) setSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now())
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDay(s scanner) (Day, error) {
	var (
		d        Day
		date     string
		h, m, sc int
		extra    int
		detailed string
		updated  string
	)
	err := s.Scan(&date, &h, &m, &sc, &extra, &detailed, &d.Record.Description,
		&d.Record.StartTime, &d.Record.EndTime, &d.Version, &d.SyncStatus, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Day{}, err
		}
		return Day{}, fmt.Errorf("scan work day: %w", err)
	}
	d.Record.Date = date
	d.Record.Hours = core.FlexInt(h)
	d.Record.Minutes = core.FlexInt(m)
	d.Record.Seconds = core.FlexInt(sc)
	d.Record.ExtraMinutes = core.FlexInt(extra)
	if json.Valid([]byte(detailed)) {
		d.Record.DetailedWork = json.RawMessage(detailed)
	}
	d.UpdatedAt = parseTime(updated)
	return d, nil
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
