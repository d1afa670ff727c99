package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"workhours/internal/core"
)

// Backends accepted by DATA_BACKEND.
var validBackends = []string{"memory", "sqlite", "sheets", "remote"}

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Logging
	LogLevel string

	// Calendar
	Timezone string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// Demo data
	DemoDataDir string
	DemoDataTTL time.Duration
	DemoSeed    int64

	// Legacy HTTP backend
	RemoteBaseURL    string
	RemoteTimeout    time.Duration
	RemoteMaxRetries int

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleWorklogSheet       string
	GoogleSettingsSheet      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration
	// SyncImportDays is how many recent days the worker pulls from the
	// sheet into SQLite each sweep; 0 disables the import.
	SyncImportDays int

	// Currency
	CurrencyAPIURL   string
	CurrencyCode     string
	CurrencyCacheTTL time.Duration

	// Dashboard
	DefaultHourlyRate    float64
	DefaultTargetHours   int
	DashboardLoadTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("TIMEZONE", "Local"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/workhours.db"),

		DemoDataDir: getEnv("DEMO_DATA_DIR", ""),
		DemoDataTTL: getEnvDuration("DEMO_DATA_TTL", 4*time.Hour),
		DemoSeed:    int64(getEnvInt("DEMO_SEED", 0)),

		RemoteBaseURL:    getEnv("REMOTE_BASE_URL", ""),
		RemoteTimeout:    getEnvDuration("REMOTE_TIMEOUT", 10*time.Second),
		RemoteMaxRetries: getEnvInt("REMOTE_MAX_RETRIES", 3),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleWorklogSheet:       getEnv("GOOGLE_WORKLOG_SHEET", "Worklog"),
		GoogleSettingsSheet:      getEnv("GOOGLE_SETTINGS_SHEET", "Settings"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "workhours"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_work_days"),

		SyncBatchSize:  getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:   getEnvDuration("SYNC_INTERVAL", 30*time.Second),
		SyncImportDays: getEnvInt("SYNC_IMPORT_DAYS", 31),

		CurrencyAPIURL:   getEnv("CURRENCY_API_URL", "http://www.geoplugin.net/json.gp"),
		CurrencyCode:     getEnv("CURRENCY_CODE", ""),
		CurrencyCacheTTL: getEnvDuration("CURRENCY_CACHE_TTL", time.Hour),

		DefaultHourlyRate:    getEnvFloat("DEFAULT_HOURLY_RATE", 50),
		DefaultTargetHours:   getEnvInt("DEFAULT_TARGET_HOURS", 40),
		DashboardLoadTimeout: getEnvDuration("DASHBOARD_LOAD_TIMEOUT", 15*time.Second),
	}
}

// Defaults are the settings used when the backend cannot provide them.
func (c *Config) Defaults() core.Settings {
	return core.Settings{HourlyRate: c.DefaultHourlyRate, TargetHours: c.DefaultTargetHours}
}

// Location resolves TIMEZONE. "Local" and "" mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}

	case "sheets":
		errors = append(errors, c.validateSheets()...)

	case "remote":
		if c.RemoteBaseURL == "" {
			errors = append(errors, "REMOTE_BASE_URL is required when using remote backend")
		} else if u, err := url.Parse(c.RemoteBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid remote base URL '%s': must be an http(s) URL", c.RemoteBaseURL))
		}
		if c.RemoteMaxRetries < 0 || c.RemoteMaxRetries > 10 {
			errors = append(errors, fmt.Sprintf("invalid remote max retries %d: must be between 0 and 10", c.RemoteMaxRetries))
		}

	case "memory":
		if c.DemoDataTTL < time.Minute {
			errors = append(errors, fmt.Sprintf("invalid demo data TTL %v: must be at least 1 minute", c.DemoDataTTL))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.SyncImportDays < 0 || c.SyncImportDays > 366 {
		errors = append(errors, fmt.Sprintf("invalid sync import days %d: must be between 0 and 366", c.SyncImportDays))
	}

	if c.DefaultHourlyRate < 0 {
		errors = append(errors, fmt.Sprintf("invalid default hourly rate %v: must not be negative", c.DefaultHourlyRate))
	}
	if err := core.ValidateTargetHours(c.DefaultTargetHours); err != nil {
		errors = append(errors, fmt.Sprintf("invalid default target hours %d: must be between 1 and 168", c.DefaultTargetHours))
	}
	if c.DashboardLoadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid dashboard load timeout %v: must be positive", c.DashboardLoadTimeout))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker checks what the sync worker needs on top of Validate.
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the sync worker")
	}
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLITE_DB_PATH is required for the sync worker")
	}
	errors = append(errors, c.validateSheets()...)
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateSheets() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
	}
	if c.GoogleWorklogSheet == "" {
		errors = append(errors, "Google worklog sheet name is required when using sheets backend")
	}
	hasFile := c.GoogleServiceAccountFile != ""
	if !hasFile && c.GoogleServiceAccountJSON == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets backend")
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errors
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
