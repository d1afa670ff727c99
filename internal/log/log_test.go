package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"workhours/internal/core"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{Level: slog.LevelDebug, Component: ComponentHTTP, Output: buf})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"loud":    slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerStampsComponentAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	ctx := WithRequestID(context.Background(), "req_abc")
	logger.InfoContext(ctx, "hello", "k", "v")

	out := buf.String()
	for _, want := range []string{"component=http", "request_id=req_abc", "k=v", "msg=hello"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestFieldsToSliceIsSorted(t *testing.T) {
	fields := NewFields().
		WithOperation(OpLoad).
		WithDate(core.MustParseDateKey("2024-01-15")).
		WithError(errors.New("boom"))

	got := fields.ToSlice()
	want := []any{FieldDate, "2024-01-15", FieldError, "boom", FieldOperation, OpLoad}
	if len(got) != len(want) {
		t.Fatalf("ToSlice() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ToSlice()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	var seen *Logger
	h := Middleware(logger)(ComponentMiddleware(ComponentDashboard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == nil || seen.Component() != ComponentDashboard {
		t.Fatalf("FromContext() component = %v, want dashboard", seen)
	}
	if FromContext(context.Background()).Component() != ComponentApp {
		t.Error("FromContext() without a logger should fall back to the app component")
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))
	r := httptest.NewRequest(http.MethodGet, "/api/dashboard?x=1", nil)

	sl.LogHTTPEnd(context.Background(), r, 503, 12, "10.0.0.1")
	if out := buf.String(); !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "status_code=503") {
		t.Errorf("unexpected output %q", out)
	}

	buf.Reset()
	sl.LogHTTPEnd(context.Background(), r, 404, 1, "10.0.0.1")
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("4xx should log at WARN: %q", buf.String())
	}
}

func TestLogDashboardTransition(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))
	rng := core.PeriodFor(core.MustParseDateKey("2024-01-17"), core.ViewWeek)

	sl.LogDashboardTransition(context.Background(), OpNavigate, core.ViewWeek, rng, 3, "ready", nil)

	out := buf.String()
	for _, want := range []string{"component=dashboard", "range_start=2024-01-15", "range_end=2024-01-21", "sequence=3", "view_mode=week"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}
