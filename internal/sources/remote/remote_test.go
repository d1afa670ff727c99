package remote

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workhours/internal/core"
)

func newTestClient(t *testing.T, h http.HandlerFunc, retries int) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, MaxRetries: retries, RetryDelay: time.Millisecond})
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(Config{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestFetchRangeSendsISODates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/work-data", r.URL.Path)
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2024-01-07", r.URL.Query().Get("endDate"))
		_, _ = w.Write([]byte(`[{"date":"2024-01-02","hours":"7","minutes":30,"extraMinutes":15}]`))
	}, 0)

	recs, err := c.FetchRange(t.Context(), core.MustParseDateKey("2024-01-01"), core.MustParseDateKey("2024-01-07"))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "2024-01-02", recs[0].Date)
	assert.Equal(t, 450, recs[0].TrackedMinutes())
	assert.Equal(t, core.FlexInt(15), recs[0].ExtraMinutes)
}

func TestFetchLiveSendsDMYDates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/worktime", r.URL.Path)
		assert.Equal(t, "14-01-2024,15-01-2024", r.URL.Query().Get("dates"))
		_, _ = w.Write([]byte(`[]`))
	}, 0)

	dates := []core.DateKey{core.MustParseDateKey("2024-01-14"), core.MustParseDateKey("2024-01-15")}
	recs, err := c.FetchLive(t.Context(), dates)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`42`))
	}, 3)

	hours, err := c.TargetHours(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 42, hours)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}, 2)

	_, err := c.TargetHours(t.Context())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusBadRequest)
	}, 3)

	_, err := c.FetchRange(t.Context(), core.MustParseDateKey("2024-01-01"), core.MustParseDateKey("2024-01-01"))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMalformedBodyIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{not json`))
	}, 3)

	_, err := c.FetchRange(t.Context(), core.MustParseDateKey("2024-01-01"), core.MustParseDateKey("2024-01-01"))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHourlyRateAcceptsQuotedNumber(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/hourlyRate", r.URL.Path)
		_, _ = w.Write([]byte(`"62.5"`))
	}, 0)

	rate, err := c.HourlyRate(t.Context())
	require.NoError(t, err)
	assert.InDelta(t, 62.5, rate, 1e-9)
}

func TestSetTargetHours(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/setTargetHours", r.URL.Path)
		assert.Equal(t, "35", r.URL.Query().Get("hours"))
		_, _ = w.Write([]byte(`35`))
	}, 0)

	require.NoError(t, c.SetTargetHours(t.Context(), 35))
	assert.ErrorIs(t, c.SetTargetHours(t.Context(), 0), core.ErrInvalidHours)
}

func TestUpdateExtraMinutesPostsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/update-extra-minutes", r.URL.Path)
		var body struct {
			Date    string `json:"date"`
			Minutes int    `json:"minutes"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2024-01-15", body.Date)
		assert.Equal(t, 30, body.Minutes)
		w.WriteHeader(http.StatusNoContent)
	}, 0)

	require.NoError(t, c.UpdateExtraMinutes(t.Context(), core.MustParseDateKey("2024-01-15"), 30))
	assert.ErrorIs(t, c.UpdateExtraMinutes(t.Context(), core.MustParseDateKey("2024-01-15"), -1), core.ErrInvalidMinutes)
}
