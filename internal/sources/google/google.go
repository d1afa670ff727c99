package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"workhours/internal/cache"
	"workhours/internal/core"
	ports "workhours/internal/sources"
)

const (
	DefaultWorklogSheet  = "Worklog"
	DefaultSettingsSheet = "Settings"

	rowsCacheKey = "worklog"
)

// Ensure interface conformance
var (
	_ ports.WorkDataSource     = (*Client)(nil)
	_ ports.SettingsStore      = (*Client)(nil)
	_ ports.ExtraMinutesWriter = (*Client)(nil)
)

type Config struct {
	SpreadsheetID   string
	WorklogSheet    string
	SettingsSheet   string
	CredentialsJSON string
	CredentialsFile string
	// RowsTTL bounds how long the worklog sheet is served from memory.
	RowsTTL  time.Duration
	Defaults core.Settings
}

// Client reads and writes a worklog spreadsheet with one row per day.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	worklogSheet  string
	settingsSheet string
	defaults      core.Settings
	rows          *cache.Loader[worklog]
	rowsCache     *cache.LRUCache[worklog]
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, cfg), nil
}

func newClient(svc *gsheet.Service, cfg Config) *Client {
	if cfg.WorklogSheet == "" {
		cfg.WorklogSheet = DefaultWorklogSheet
	}
	if cfg.SettingsSheet == "" {
		cfg.SettingsSheet = DefaultSettingsSheet
	}
	if cfg.RowsTTL <= 0 {
		cfg.RowsTTL = 30 * time.Second
	}
	c := &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		worklogSheet:  cfg.WorklogSheet,
		settingsSheet: cfg.SettingsSheet,
		defaults:      cfg.Defaults,
		rowsCache:     cache.NewLRUCache[worklog](1, cfg.RowsTTL),
	}
	c.rows = cache.NewLoader[worklog](c.rowsCache, func(ctx context.Context, _ string) (worklog, error) {
		return c.readWorklog(ctx)
	})
	return c
}

// RowsCache exposes the worklog cache for registration with a cache.Manager.
func (c *Client) RowsCache() cache.Cleaner { return c.rowsCache }

// newSheetsService initializes a Sheets Service using Service Account
// credentials, inline or from a file (GOOGLE_APPLICATION_CREDENTIALS as a
// last resort).
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credsFile := strings.TrimSpace(cfg.CredentialsFile)
	if cfg.CredentialsJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case cfg.CredentialsJSON != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case credsFile != "":
		b, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON))

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newHTTPClientWithPooling returns a keep-alive client with bounded
// timeouts for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

func (c *Client) readWorklog(ctx context.Context) (worklog, error) {
	if c.svc == nil {
		return worklog{}, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:I", c.worklogSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return worklog{}, fmt.Errorf("read worklog: %w", err)
	}
	wl, err := parseWorklog(resp.Values)
	if err != nil {
		return worklog{}, err
	}
	slog.DebugContext(ctx, "Worklog sheet read", "rows", len(wl.records))
	return wl, nil
}

// FetchRange implements sources.WorkDataSource.
func (c *Client) FetchRange(ctx context.Context, start, end core.DateKey) ([]core.RawRecord, error) {
	wl, err := c.rows.Get(ctx, rowsCacheKey)
	if err != nil {
		return nil, err
	}
	r := core.DateRange{Start: start, End: end}
	var out []core.RawRecord
	for _, rec := range wl.records {
		if d, err := core.ParseDateKey(rec.Date); err == nil && r.Contains(d) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// FetchLive implements sources.WorkDataSource. It bypasses the row cache so
// today's numbers are current.
func (c *Client) FetchLive(ctx context.Context, dates []core.DateKey) ([]core.RawRecord, error) {
	wl, err := c.readWorklog(ctx)
	if err != nil {
		return nil, err
	}
	c.rowsCache.Set(rowsCacheKey, wl)
	out := make([]core.RawRecord, 0, len(dates))
	for _, d := range dates {
		if i, ok := wl.index[d]; ok {
			rec := wl.records[i]
			rec.Date = d.APIString()
			out = append(out, rec)
		}
	}
	return out, nil
}

// UpdateExtraMinutes implements sources.ExtraMinutesWriter. The worklog is
// read uncached and only the day's Extra Minutes cell is written, so tracked
// time owned by the sheet is never overwritten.
func (c *Client) UpdateExtraMinutes(ctx context.Context, date core.DateKey, minutes int) error {
	if err := core.ValidateExtraMinutes(minutes); err != nil {
		return err
	}
	wl, err := c.readWorklog(ctx)
	if err != nil {
		return err
	}
	w, err := extraMinutesWrite(wl, c.worklogSheet, date, minutes)
	if err != nil {
		return err
	}
	defer c.rows.Invalidate(rowsCacheKey)

	vr := &gsheet.ValueRange{Values: w.Values}
	if w.Append {
		_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, w.Range, vr).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append worklog row: %w", err)
		}
		slog.InfoContext(ctx, "Appended worklog row", "date", date.String(), "extra_minutes", minutes)
		return nil
	}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, w.Range, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update extra minutes at %s: %w", w.Range, err)
	}
	slog.InfoContext(ctx, "Updated worklog extra minutes", "date", date.String(), "cell", w.Range, "extra_minutes", minutes)
	return nil
}

func (c *Client) readSettings(ctx context.Context) (map[string]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, fmt.Sprintf("%s!A:B", c.settingsSheet)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return parseSettings(resp.Values), nil
}

// HourlyRate implements sources.SettingsStore.
func (c *Client) HourlyRate(ctx context.Context) (float64, error) {
	s, err := c.readSettings(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := s[settingHourlyRate]
	if !ok {
		return c.defaults.HourlyRate, nil
	}
	rate, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("parse hourly rate %q: %w", v, err)
	}
	return rate, nil
}

// TargetHours implements sources.SettingsStore.
func (c *Client) TargetHours(ctx context.Context) (int, error) {
	s, err := c.readSettings(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := s[settingTargetHours]
	if !ok {
		return c.defaults.TargetHours, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse target hours %q: %w", v, err)
	}
	return n, nil
}

// SetTargetHours implements sources.SettingsStore.
func (c *Client) SetTargetHours(ctx context.Context, hours int) error {
	if err := core.ValidateTargetHours(hours); err != nil {
		return err
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, fmt.Sprintf("%s!A:A", c.settingsSheet)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read settings keys: %w", err)
	}
	vr := &gsheet.ValueRange{Values: [][]any{{settingTargetHours, hours}}}
	for i, row := range resp.Values {
		if len(row) > 0 && strings.EqualFold(strings.TrimSpace(fmt.Sprint(row[0])), settingTargetHours) {
			target := fmt.Sprintf("%s!A%d:B%d", c.settingsSheet, i+1, i+1)
			_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, target, vr).ValueInputOption("RAW").Context(ctx).Do()
			if err != nil {
				return fmt.Errorf("update target hours: %w", err)
			}
			return nil
		}
	}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("%s!A:B", c.settingsSheet), vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append target hours: %w", err)
	}
	return nil
}
