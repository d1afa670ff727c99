package services

import (
	"context"
	"fmt"
	"log/slog"

	"workhours/internal/core"
	"workhours/internal/sources"
)

// SyncPublisher announces that a day changed locally and needs pushing to the sheet.
type SyncPublisher interface {
	PublishDaySync(ctx context.Context, date core.DateKey, version int64) error
}

// versionedWriter is implemented by stores that track row versions (SQLite).
type versionedWriter interface {
	UpdateExtraMinutesVersion(ctx context.Context, date core.DateKey, minutes int) (int64, error)
}

// ExtraMinutesService saves manual extra minutes and, for versioned stores,
// publishes a sync message so the worker pushes the change to the sheet.
type ExtraMinutesService struct {
	writer    sources.ExtraMinutesWriter
	publisher SyncPublisher
	onChange  func(date core.DateKey)
}

// NewExtraMinutesService wires a writer and an optional publisher. Pass a nil
// interface, not a typed nil pointer, when no broker is configured.
func NewExtraMinutesService(writer sources.ExtraMinutesWriter, publisher SyncPublisher) *ExtraMinutesService {
	return &ExtraMinutesService{writer: writer, publisher: publisher}
}

// OnChange registers a callback run after every successful update.
func (s *ExtraMinutesService) OnChange(fn func(date core.DateKey)) {
	s.onChange = fn
}

func (s *ExtraMinutesService) Update(ctx context.Context, date core.DateKey, minutes int) error {
	if date.IsZero() {
		return core.ErrInvalidDate
	}
	if err := core.ValidateExtraMinutes(minutes); err != nil {
		return err
	}

	if vw, ok := s.writer.(versionedWriter); ok {
		version, err := vw.UpdateExtraMinutesVersion(ctx, date, minutes)
		if err != nil {
			return fmt.Errorf("save extra minutes: %w", err)
		}
		// the queue row written with the update is the fallback if this fails
		if err := s.publishSyncMessage(ctx, date, version); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync message",
				"date", date.String(), "version", version, "error", err)
		}
	} else if err := s.writer.UpdateExtraMinutes(ctx, date, minutes); err != nil {
		return fmt.Errorf("save extra minutes: %w", err)
	}

	slog.InfoContext(ctx, "Extra minutes updated", "date", date.String(), "minutes", minutes)
	if s.onChange != nil {
		s.onChange(date)
	}
	return nil
}

func (s *ExtraMinutesService) publishSyncMessage(ctx context.Context, date core.DateKey, version int64) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.publisher.PublishDaySync(ctx, date, version)
}
