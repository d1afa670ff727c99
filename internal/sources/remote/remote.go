// Package remote reads work data from a legacy work-time backend over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"workhours/internal/core"
	ports "workhours/internal/sources"
)

var (
	_ ports.WorkDataSource     = (*Client)(nil)
	_ ports.SettingsStore      = (*Client)(nil)
	_ ports.ExtraMinutesWriter = (*Client)(nil)
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Path, e.Code, e.Body)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// RetryDelay is the first backoff; it doubles on each retry.
	RetryDelay time.Duration
	HTTPClient *http.Client
}

type Client struct {
	base       *url.URL
	http       *http.Client
	maxRetries int
	retryDelay time.Duration
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid remote base url %q", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Client{base: base, http: hc, maxRetries: cfg.MaxRetries, retryDelay: cfg.RetryDelay}, nil
}

// FetchRange calls GET /work-data?startDate&endDate.
func (c *Client) FetchRange(ctx context.Context, start, end core.DateKey) ([]core.RawRecord, error) {
	q := url.Values{"startDate": {start.String()}, "endDate": {end.String()}}
	var recs []core.RawRecord
	if err := c.getJSON(ctx, "/work-data", q, &recs); err != nil {
		return nil, fmt.Errorf("fetch work data: %w", err)
	}
	return recs, nil
}

// FetchLive calls GET /worktime?dates=dd-mm-yyyy,...
func (c *Client) FetchLive(ctx context.Context, dates []core.DateKey) ([]core.RawRecord, error) {
	keys := make([]string, len(dates))
	for i, d := range dates {
		keys[i] = d.APIString()
	}
	var recs []core.RawRecord
	if err := c.getJSON(ctx, "/worktime", url.Values{"dates": {strings.Join(keys, ",")}}, &recs); err != nil {
		return nil, fmt.Errorf("fetch worktime: %w", err)
	}
	return recs, nil
}

func (c *Client) HourlyRate(ctx context.Context) (float64, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/hourlyRate", nil, &raw); err != nil {
		return 0, fmt.Errorf("fetch hourly rate: %w", err)
	}
	// bare number, sometimes quoted
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("decode hourly rate: %w", err)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("decode hourly rate: %w", err)
	}
	return f, nil
}

func (c *Client) TargetHours(ctx context.Context) (int, error) {
	var hours core.FlexInt
	if err := c.getJSON(ctx, "/getTargetHours", nil, &hours); err != nil {
		return 0, fmt.Errorf("fetch target hours: %w", err)
	}
	return int(hours), nil
}

func (c *Client) SetTargetHours(ctx context.Context, hours int) error {
	if err := core.ValidateTargetHours(hours); err != nil {
		return err
	}
	var echoed core.FlexInt
	if err := c.getJSON(ctx, "/setTargetHours", url.Values{"hours": {strconv.Itoa(hours)}}, &echoed); err != nil {
		return fmt.Errorf("set target hours: %w", err)
	}
	return nil
}

// UpdateExtraMinutes calls POST /update-extra-minutes.
func (c *Client) UpdateExtraMinutes(ctx context.Context, date core.DateKey, minutes int) error {
	if err := core.ValidateExtraMinutes(minutes); err != nil {
		return err
	}
	body, err := json.Marshal(map[string]any{"date": date.String(), "minutes": minutes})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/update-extra-minutes", nil, body, nil)
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, q, nil, out)
}

// do performs the request, retrying transport errors and 5xx responses with
// exponential backoff.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body []byte, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay << (attempt - 1)
			slog.DebugContext(ctx, "Retrying remote request", "path", path, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		var rdr io.Reader
		if body != nil {
			rdr = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		lastErr = c.roundTrip(req, path, out)
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) roundTrip(req *http.Request, path string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &decodeError{path: path, err: err}
	}
	return nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	var de *decodeError
	return !errors.As(err, &de)
}

type decodeError struct {
	path string
	err  error
}

func (e *decodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.path, e.err) }
func (e *decodeError) Unwrap() error { return e.err }
