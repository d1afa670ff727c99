package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"workhours/internal/cache"
	"workhours/internal/cli"
	"workhours/internal/core"
	"workhours/internal/currency"
	apphttp "workhours/internal/http"
	applog "workhours/internal/log"
	"workhours/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	// Setup structured logging
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, nil)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "timezone", cfg.Timezone, applog.FieldError, err)
		os.Exit(1)
	}
	today := func() core.DateKey { return core.DateKeyOf(time.Now().In(loc)) }

	ctx, stop := cli.SignalContext()
	defer stop()

	caches := cache.NewManager()
	defer caches.Stop()

	res := cli.InitBackend(ctx, logger, cfg, caches)
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	rates := currency.New(currency.Config{
		URL:  cfg.CurrencyAPIURL,
		TTL:  cfg.CurrencyCacheTTL,
		Code: cfg.CurrencyCode,
	})
	caches.Register("currency", rates.Cache())
	caches.StartCleanup(5 * time.Minute)

	dashboard := services.NewDashboard(res.Backend, today, services.DashboardConfig{
		Mode:        core.ViewWeek,
		LoadTimeout: cfg.DashboardLoadTimeout,
	})

	var extra *services.ExtraMinutesService
	if res.Writer != nil {
		extra = services.NewExtraMinutesService(res.Writer, res.Publisher)
		extra.OnChange(func(date core.DateKey) {
			logger.Debug("Extra minutes changed", applog.FieldDate, date.String())
		})
	} else {
		logger.Info("Backend is read-only, extra minutes disabled", applog.FieldBackend, cfg.DataBackend)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Dashboard:    dashboard,
		Source:       res.Backend,
		Settings:     res.Backend,
		Currency:     rates,
		ExtraMinutes: extra,
		Projection:   services.NewProjectionService(res.Backend, rates, cfg.Defaults(), today),
		Caches:       caches,
		Ready:        res.Ready,
		Today:        today,
		Defaults:     cfg.Defaults(),
	}, apphttp.Options{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Logger:            logger.WithComponent(applog.ComponentHTTP),
	})

	// Graceful shutdown handling
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	}()

	logger.Info("Starting workhours server",
		"port", cfg.Port, applog.FieldBackend, cfg.DataBackend, "timezone", loc.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		stop()
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
