package services

import (
	"context"
	"log/slog"

	"workhours/internal/core"
	"workhours/internal/sources"
)

// ProjectionService combines a dashboard snapshot with settings and the
// currency rate. Lookups that fail fall back to defaults.
type ProjectionService struct {
	settings sources.SettingsStore
	currency sources.CurrencyProvider
	defaults core.Settings
	today    func() core.DateKey
}

func NewProjectionService(settings sources.SettingsStore, currency sources.CurrencyProvider, defaults core.Settings, today func() core.DateKey) *ProjectionService {
	return &ProjectionService{settings: settings, currency: currency, defaults: defaults, today: today}
}

func (s *ProjectionService) Settings(ctx context.Context) core.Settings {
	out := s.defaults
	if s.settings == nil {
		return out
	}
	if rate, err := s.settings.HourlyRate(ctx); err != nil {
		slog.WarnContext(ctx, "Hourly rate unavailable, using default", "error", err, "default", out.HourlyRate)
	} else {
		out.HourlyRate = rate
	}
	if hours, err := s.settings.TargetHours(ctx); err != nil || hours <= 0 {
		slog.WarnContext(ctx, "Target hours unavailable, using default", "error", err, "default", out.TargetHours)
	} else {
		out.TargetHours = hours
	}
	return out
}

// Currency returns the zero rate when no provider is configured or it fails.
func (s *ProjectionService) Currency(ctx context.Context) core.CurrencyRate {
	if s.currency == nil {
		return core.CurrencyRate{}
	}
	rate, err := s.currency.Rate(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Currency rate unavailable", "error", err)
		return core.CurrencyRate{}
	}
	return rate
}

func (s *ProjectionService) Project(ctx context.Context, st DashboardState) core.Projection {
	return core.Project(st.Range, st.Current, st.Previous, s.Settings(ctx), s.Currency(ctx), s.today())
}

func (s *ProjectionService) Report(ctx context.Context, st DashboardState, description string) string {
	settings := s.Settings(ctx)
	return core.WorkReport(st.Range, st.Current.RawMinutes(), settings.HourlyRate, s.Currency(ctx), description)
}
