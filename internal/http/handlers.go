package http

import (
	"context"
	"errors"
	"net/http"

	"workhours/internal/core"
	applog "workhours/internal/log"
	"workhours/internal/services"
)

const (
	// fallbackTargetHours is reported when the settings store is unreachable.
	fallbackTargetHours = 40
	// maxRangeDays keeps a single range request to about a year.
	maxRangeDays = 366
)

type workDataResponse struct {
	WorkData []core.WorkEntry `json:"workData"`
	Totals   totals           `json:"totals"`
}

type totals struct {
	TotalHours   int `json:"totalHours"`
	TotalMinutes int `json:"totalMinutes"`
}

// handleWorkData returns the normalized entries and totals for a range.
func (s *Server) handleWorkData(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseRangeParams(r.URL.Query(), true)
	if err != nil {
		BadRequestError("startDate and endDate are required (YYYY-MM-DD)").Write(w)
		return
	}
	if rng.Days() > maxRangeDays {
		BadRequestError("range too large").Write(w)
		return
	}

	ctx, cancel := withUpstreamTimeout(r)
	defer cancel()
	raw, err := s.deps.Source.FetchRange(ctx, rng.Start, rng.End)
	if err != nil {
		s.logger.ErrorContext(ctx, "Work data fetch failed",
			applog.NewFields().WithRange(rng).WithError(err).WithErrorType(errorType(err)).ToSlice()...)
		InternalServerError("Failed to fetch work data").Write(w)
		return
	}

	agg := core.Aggregate(services.Normalize(raw, rng))
	NewResponse().JSON(workDataResponse{
		WorkData: agg.Entries,
		Totals:   totals{TotalHours: agg.TotalHours, TotalMinutes: agg.TotalMinutes},
	}).Write(w)
}

// handleTodayWork returns today's live snapshot, zeros on any failure.
func (s *Server) handleTodayWork(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withUpstreamTimeout(r)
	defer cancel()

	widget := core.TodayWidget{DetailedWork: []core.WorkSession{}}
	today := s.deps.Today()
	recs, err := s.deps.Source.FetchLive(ctx, []core.DateKey{today})
	if err != nil {
		s.logger.WarnContext(ctx, "Live fetch failed", applog.FieldDate, today.String(), applog.FieldError, err)
	}
	for _, rec := range recs {
		d, err := core.ParseDateKey(rec.Date)
		if err != nil || d != today {
			continue
		}
		e := services.ToEntry(d, rec)
		widget = core.TodayWidget{
			Hours:        e.Duration / 60,
			Minutes:      e.Duration % 60,
			TotalMinutes: e.Duration,
			DetailedWork: e.DetailedWork,
		}
	}
	NewResponse().JSON(widget).Write(w)
}

func (s *Server) handleHourlyRate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withUpstreamTimeout(r)
	defer cancel()

	rate, err := s.deps.Settings.HourlyRate(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Hourly rate unavailable", applog.FieldError, err)
		rate = 0
	}
	NewResponse().JSON(map[string]float64{"hourlyRate": rate}).Write(w)
}

func (s *Server) handleGetTargetHours(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withUpstreamTimeout(r)
	defer cancel()

	hours, err := s.deps.Settings.TargetHours(ctx)
	if err != nil || hours <= 0 {
		if err != nil {
			s.logger.WarnContext(ctx, "Target hours unavailable", applog.FieldError, err)
		}
		hours = fallbackTargetHours
	}
	NewResponse().JSON(map[string]int{"targetHours": hours}).Write(w)
}

// handleSetTargetHours accepts {"hours": n} or ?hours=n.
func (s *Server) handleSetTargetHours(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	hours, err := p.Int("hours", "targetHours")
	if err != nil {
		hours, err = ParseIntValue(r.URL.Query().Get("hours"))
	}
	if err != nil {
		BadRequestError("hours required").Write(w)
		return
	}
	if err := core.ValidateTargetHours(hours); err != nil {
		BadRequestError("hours must be between 1 and 168").Write(w)
		return
	}

	ctx, cancel := withUpstreamTimeout(r)
	defer cancel()
	if err := s.deps.Settings.SetTargetHours(ctx, hours); err != nil {
		s.logger.ErrorContext(ctx, "Failed to set target hours", applog.FieldError, err)
		InternalServerError("Failed to set target hours").Write(w)
		return
	}
	s.logger.InfoContext(ctx, "Target hours updated", "target_hours", hours)
	NewResponse().JSON(map[string]any{"success": true, "targetHours": hours}).Write(w)
}

func (s *Server) handleCurrency(w http.ResponseWriter, r *http.Request) {
	var rate core.CurrencyRate
	if s.deps.Currency != nil {
		ctx, cancel := withUpstreamTimeout(r)
		defer cancel()
		got, err := s.deps.Currency.Rate(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "Currency rate unavailable", applog.FieldError, err)
		} else {
			rate = got
		}
	}
	NewResponse().JSON(rate).Write(w)
}

type extraMinutesResponse struct {
	Success   bool                     `json:"success"`
	Date      core.DateKey             `json:"date"`
	Minutes   int                      `json:"minutes"`
	Dashboard *services.DashboardState `json:"dashboard,omitempty"`
}

// handleExtraMinutes stores extra minutes for a day and reloads the
// dashboard when that day is on screen.
func (s *Server) handleExtraMinutes(w http.ResponseWriter, r *http.Request) {
	date, minutes, errResp := parseExtraMinutes(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	if errResp := s.updateExtraMinutes(r.Context(), date, minutes); errResp != nil {
		errResp.Write(w)
		return
	}

	resp := extraMinutesResponse{Success: true, Date: date, Minutes: minutes}
	if d := s.deps.Dashboard; d != nil && d.State().Range.Contains(date) {
		st, _ := s.runTransition(r.Context(), applog.OpUpdate, d.Load)
		resp.Dashboard = &st
	}
	NewResponse().
		TriggerExtraMinutesSaved(date, minutes).
		JSON(resp).
		Write(w)
}

func parseExtraMinutes(r *http.Request) (core.DateKey, int, *ResponseBuilder) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.DateKey{}, 0, BadRequestError("invalid request body")
	}
	rawDate := p.Get("date")
	minutes, err := p.Int("minutes", "extraMinutes")
	if rawDate == "" || err != nil {
		return core.DateKey{}, 0, BadRequestError("Date and minutes are required")
	}
	date, err := core.ParseDateKey(rawDate)
	if err != nil {
		return core.DateKey{}, 0, BadRequestError("invalid date")
	}
	if err := core.ValidateExtraMinutes(minutes); err != nil {
		return core.DateKey{}, 0, BadRequestError("minutes must be between 0 and 1440")
	}
	return date, minutes, nil
}

func (s *Server) updateExtraMinutes(ctx context.Context, date core.DateKey, minutes int) *ResponseBuilder {
	if s.deps.ExtraMinutes == nil {
		return ErrorResponse(http.StatusNotImplemented, "extra minutes are read-only for this backend")
	}
	ctx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()
	err := s.deps.ExtraMinutes.Update(ctx, date, minutes)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrInvalidDate), errors.Is(err, core.ErrInvalidMinutes):
		return BadRequestError(err.Error())
	}
	s.logger.ErrorContext(ctx, "Failed to update extra minutes",
		applog.NewFields().WithDate(date).WithError(err).WithErrorType(errorType(err)).ToSlice()...)
	return InternalServerError("Failed to update extra minutes")
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return applog.ErrorTypeTimeout
	case errors.Is(err, core.ErrInvalidDate), errors.Is(err, core.ErrInvalidMinutes), errors.Is(err, core.ErrInvalidHours):
		return applog.ErrorTypeValidation
	}
	return applog.ErrorTypeInternal
}
