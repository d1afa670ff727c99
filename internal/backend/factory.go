package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"workhours/internal/amqp"
	"workhours/internal/cache"
	"workhours/internal/sources/google"
	"workhours/internal/sources/memory"
	"workhours/internal/sources/remote"
	"workhours/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case RemoteBackend:
		return f.createRemoteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.Defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	res := &BackendResult{
		Backend: repo,
		Writer:  repo,
		Ready:   repo.Ping,
	}

	// AMQP is optional; the queue table covers sync without it
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync messages", "error", err)
		} else {
			res.Publisher = amqpClient
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	res.Cleanup = func() error {
		var errs []error
		if amqpClient != nil {
			errs = append(errs, amqpClient.Close())
		}
		errs = append(errs, repo.Close())
		return errors.Join(errs...)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)
	return res, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		WorklogSheet:    config.GoogleWorklogSheet,
		SettingsSheet:   config.GoogleSettingsSheet,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
		Defaults:        config.Defaults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"worklog_sheet", config.GoogleWorklogSheet,
		"settings_sheet", config.GoogleSettingsSheet)

	return &BackendResult{
		Backend: cli,
		Writer:  cli,
		Caches:  map[string]cache.Cleaner{"sheets_rows": cli.RowsCache()},
	}, nil
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*BackendResult, error) {
	cli, err := remote.New(remote.Config{
		BaseURL:    config.RemoteBaseURL,
		Timeout:    config.RemoteTimeout,
		MaxRetries: config.RemoteMaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote backend: %w", err)
	}

	f.logger.Info("Initialized remote backend", "base_url", config.RemoteBaseURL)
	return &BackendResult{Backend: cli, Writer: cli}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	opts := []memory.Option{
		memory.WithSettings(config.Defaults.HourlyRate, config.Defaults.TargetHours),
	}
	if config.DemoTTL > 0 {
		opts = append(opts, memory.WithTTL(config.DemoTTL))
	}
	if config.DemoSeed != 0 {
		opts = append(opts, memory.WithSeed(config.DemoSeed))
	}
	if config.Location != nil {
		opts = append(opts, memory.WithLocation(config.Location))
	}
	if config.DataDirectory != "" {
		opts = append(opts, memory.WithPersister(memory.NewDisk(config.DataDirectory)))
	}

	store := memory.New(opts...)
	store.Restore(ctx)

	f.logger.Info("Initialized memory backend",
		"data_directory", config.DataDirectory,
		"persistent", config.DataDirectory != "")

	return &BackendResult{Backend: store, Writer: store}, nil
}
