package main

import (
	"context"
	"errors"
	"os"
	"time"

	"workhours/internal/amqp"
	"workhours/internal/cli"
	"workhours/internal/config"
	"workhours/internal/core"
	applog "workhours/internal/log"
	"workhours/internal/services"
	"workhours/internal/sources/google"
	"workhours/internal/storage"
	"workhours/internal/worker"
)

// consumerConcurrency bounds in-flight day syncs; each one writes a sheet row.
const consumerConcurrency = 2

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.Info("Starting workhours-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "timezone", cfg.Timezone, applog.FieldError, err)
		os.Exit(1)
	}
	today := func() core.DateKey { return core.DateKeyOf(time.Now().In(loc)) }

	ctx, stop := cli.SignalContext()
	defer stop()

	// SQLite holds the extra minutes to push; the sheet owns tracked time
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, cfg.Defaults())
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	sheets, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		WorklogSheet:    cfg.GoogleWorklogSheet,
		SettingsSheet:   cfg.GoogleSettingsSheet,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		Defaults:        cfg.Defaults(),
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	procCfg := services.DefaultSyncProcessorConfig()
	procCfg.BatchSize = cfg.SyncBatchSize
	procCfg.PollInterval = cfg.SyncInterval
	processor := services.NewSyncProcessor(repo, sheets, procCfg)
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", applog.FieldError, err)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(processor, repo, cfg.SyncBatchSize)
	importer := worker.NewImporter(sheets, repo, cfg.SyncImportDays, today)
	importRecent := func() {
		n, err := importer.ImportRecent(ctx)
		if err != nil {
			logger.Error("Importing days from sheet failed", applog.FieldError, err, "imported", n)
			return
		}
		if n > 0 {
			logger.Debug("Imported days from sheet", "imported", n)
		}
	}
	importRecent()

	// On startup, process any days that might have been missed
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		// Don't exit - continue with normal operation
		logger.Error("Failed startup sync check", applog.FieldError, err)
	}

	go func() {
		err := amqpClient.ConsumeDaySync(ctx, consumerConcurrency, syncWorker.HandleSyncMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
		}
		stop()
	}()

	// Periodic sweep for missed messages
	go func() {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				importRecent()
				synced, failed, err := syncWorker.ProcessPendingDays(ctx)
				if err != nil {
					logger.Error("Periodic sync failed", applog.FieldError, err)
					continue
				}
				if synced+failed > 0 {
					logger.Info("Periodic sync completed", "synced", synced, "errors", failed)
				}
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
	defer cancel()
	if err := processor.Stop(shutdownCtx); err != nil {
		logger.Warn("Sync processor did not stop cleanly", applog.FieldError, err)
	}
	if stats, err := processor.Stats(shutdownCtx); err == nil {
		logger.Info("Worker shutdown complete",
			"pending", stats.Pending, "failed", stats.Failed, "completed", stats.Completed)
	}
}
