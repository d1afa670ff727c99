package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workhours/internal/config"
	"workhours/internal/core"
)

func TestBackendType(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		assert.True(t, bt.IsValid(), bt)
	}
	assert.False(t, BackendType("postgres").IsValid())
	assert.Equal(t, "memory, sqlite, sheets, remote", GetBackendTypeStrings())
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	require.Error(t, err)

	app := &config.Config{
		DataBackend:        "remote",
		RemoteBaseURL:      "http://legacy:3000",
		RemoteTimeout:      5 * time.Second,
		RemoteMaxRetries:   2,
		Timezone:           "UTC",
		DefaultHourlyRate:  65,
		DefaultTargetHours: 32,
	}
	cfg, err := FromAppConfig(app)
	require.NoError(t, err)
	assert.Equal(t, RemoteBackend, cfg.Type)
	assert.Equal(t, "http://legacy:3000", cfg.RemoteBaseURL)
	assert.Equal(t, 2, cfg.RemoteMaxRetries)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, core.Settings{HourlyRate: 65, TargetHours: 32}, cfg.Defaults)

	app.DataBackend = "mongo"
	_, err = FromAppConfig(app)
	require.Error(t, err)

	app.DataBackend = "memory"
	app.Timezone = "Mars/Olympus"
	_, err = FromAppConfig(app)
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sheets without id", Config{Type: SheetsBackend, GoogleWorklogSheet: "Worklog", GoogleServiceAccountJSON: "{}"}, true},
		{"sheets without credentials", Config{Type: SheetsBackend, GoogleSpreadsheetID: "id", GoogleWorklogSheet: "Worklog"}, true},
		{"sheets", Config{Type: SheetsBackend, GoogleSpreadsheetID: "id", GoogleWorklogSheet: "Worklog", GoogleServiceAccountJSON: "{}"}, false},
		{"remote without url", Config{Type: RemoteBackend}, true},
		{"unknown", Config{Type: "ftp"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f := NewFactory(nil)

	res, err := f.CreateBackend(ctx, Config{
		Type:          MemoryBackend,
		DataDirectory: dir,
		DemoSeed:      7,
		Location:      time.UTC,
		Defaults:      core.Settings{HourlyRate: 42, TargetHours: 30},
	})
	require.NoError(t, err)
	defer res.Close()

	require.NotNil(t, res.Writer)
	assert.Nil(t, res.Publisher)

	rate, err := res.Backend.HourlyRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42.0, rate)

	day := core.DateKeyOf(time.Now().UTC()).AddDays(-1)
	require.NoError(t, res.Writer.UpdateExtraMinutes(ctx, day, 25))

	recs, err := res.Backend.FetchRange(ctx, day, day)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, core.FlexInt(25), recs[0].ExtraMinutes)
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	res, err := f.CreateBackend(ctx, Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "wh.db"),
		Defaults:     core.Settings{HourlyRate: 50, TargetHours: 40},
	})
	require.NoError(t, err)
	defer func() { assert.NoError(t, res.Close()) }()

	assert.Nil(t, res.Publisher, "no broker configured")
	require.NotNil(t, res.Ready)
	assert.NoError(t, res.Ready(ctx))

	day := core.MustParseDateKey("2024-03-04")
	require.NoError(t, res.Writer.UpdateExtraMinutes(ctx, day, 15))
	recs, err := res.Backend.FetchRange(ctx, day, day)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, core.FlexInt(15), recs[0].ExtraMinutes)
}

func TestCreateRemoteBackend(t *testing.T) {
	f := NewFactory(nil)

	res, err := f.CreateBackend(context.Background(), Config{Type: RemoteBackend, RemoteBaseURL: "http://legacy.local:3000"})
	require.NoError(t, err)
	assert.NotNil(t, res.Writer)
	assert.NoError(t, res.Close())

	_, err = f.CreateBackend(context.Background(), Config{Type: RemoteBackend, RemoteBaseURL: "not a url"})
	assert.Error(t, err)
}
