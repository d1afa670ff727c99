package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"workhours/internal/cli"
	"workhours/internal/core"
	"workhours/internal/currency"
	applog "workhours/internal/log"
	"workhours/internal/report"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cli.LoadEnvFile()

	// warnings go to stderr so stdout stays the report
	logger := applog.New(applog.Config{Level: slog.LevelWarn, Component: "report", Output: os.Stderr})
	applog.SetDefault(logger)
	cfg := cli.LoadAndValidateConfig(logger, nil)

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	res := cli.InitBackend(ctx, logger, cfg, nil)
	defer res.Close()

	var rates *currency.Client
	if cfg.CurrencyCode != "" {
		rates = currency.New(currency.Config{URL: cfg.CurrencyAPIURL, TTL: cfg.CurrencyCacheTTL, Code: cfg.CurrencyCode})
	}
	app := &report.App{
		Source:   res.Backend,
		Settings: res.Backend,
		Defaults: cfg.Defaults(),
		Today:    func() core.DateKey { return core.DateKeyOf(time.Now().In(loc)) },
		Timeout:  cfg.DashboardLoadTimeout,
		Out:      os.Stdout,
	}
	if rates != nil {
		app.Currency = rates
	}
	cmd := report.NewRootCmd(app)
	cmd.SilenceErrors = true
	return cmd.ExecuteContext(ctx)
}
