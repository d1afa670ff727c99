package backend

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"workhours/internal/config"
	"workhours/internal/core"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleWorklogSheet       string
	GoogleSettingsSheet      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Legacy HTTP backend
	RemoteBaseURL    string
	RemoteTimeout    time.Duration
	RemoteMaxRetries int

	// Memory backend specific
	DataDirectory string
	DemoTTL       time.Duration
	DemoSeed      int64
	Location      *time.Location

	Defaults core.Settings
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
	RemoteBackend BackendType = "remote"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend, RemoteBackend:
		return true
	default:
		return false
	}
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	loc, err := appConfig.Location()
	if err != nil {
		return Config{}, fmt.Errorf("load timezone %q: %w", appConfig.Timezone, err)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleWorklogSheet:       appConfig.GoogleWorklogSheet,
		GoogleSettingsSheet:      appConfig.GoogleSettingsSheet,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,

		RemoteBaseURL:    appConfig.RemoteBaseURL,
		RemoteTimeout:    appConfig.RemoteTimeout,
		RemoteMaxRetries: appConfig.RemoteMaxRetries,

		DataDirectory: appConfig.DemoDataDir,
		DemoTTL:       appConfig.DemoDataTTL,
		DemoSeed:      appConfig.DemoSeed,
		Location:      loc,

		Defaults: appConfig.Defaults(),
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
		// AMQP is optional

	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets backend")
		}
		if c.GoogleWorklogSheet == "" {
			return errors.New("Google worklog sheet name is required for sheets backend")
		}
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			return errors.New("either GoogleServiceAccountFile or GoogleServiceAccountJSON must be provided for sheets backend")
		}

	case RemoteBackend:
		if c.RemoteBaseURL == "" {
			return errors.New("remote base URL is required for remote backend")
		}

	case MemoryBackend:
		// DataDirectory is optional; without it demo data lives in memory only
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, SheetsBackend, RemoteBackend}
}

// GetBackendTypeStrings returns all valid backend type strings joined for messages.
func GetBackendTypeStrings() string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return strings.Join(out, ", ")
}
