package sources

import (
	"context"

	"workhours/internal/core"
)

// Ports for outbound adapters.
type (
	// WorkDataSource is the read side every backend provides. Both calls are
	// read-only and idempotent; callers normalize the returned date strings.
	WorkDataSource interface {
		// FetchRange returns the raw records stored between start and end inclusive.
		FetchRange(ctx context.Context, start, end core.DateKey) ([]core.RawRecord, error)
		// FetchLive returns the freshest records for the given dates.
		FetchLive(ctx context.Context, dates []core.DateKey) ([]core.RawRecord, error)
	}

	SettingsStore interface {
		HourlyRate(ctx context.Context) (float64, error)
		TargetHours(ctx context.Context) (int, error)
		SetTargetHours(ctx context.Context, hours int) error
	}

	ExtraMinutesWriter interface {
		UpdateExtraMinutes(ctx context.Context, date core.DateKey, minutes int) error
	}

	CurrencyProvider interface {
		Rate(ctx context.Context) (core.CurrencyRate, error)
	}
)
