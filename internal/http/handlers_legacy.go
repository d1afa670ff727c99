package http

import (
	"net/http"
	"strconv"

	"workhours/internal/core"
	applog "workhours/internal/log"
)

// The handlers below speak the legacy backend protocol so another instance
// (through the remote source) or the old frontend can use this server as
// its data backend. Payloads are bare JSON values, not wrapped objects.

func (s *Server) handleLegacyWorkData(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseRangeParams(r.URL.Query(), false)
	if err != nil {
		BadRequestError("Start date is required").Write(w)
		return
	}
	if rng.Days() > maxRangeDays {
		BadRequestError("range too large").Write(w)
		return
	}

	ctx, cancel := withUpstreamTimeout(r)
	defer cancel()
	recs, err := s.deps.Source.FetchRange(ctx, rng.Start, rng.End)
	if err != nil {
		s.logger.ErrorContext(ctx, "Legacy work data fetch failed",
			applog.NewFields().WithRange(rng).WithError(err).ToSlice()...)
		InternalServerError("Failed to fetch work data").Write(w)
		return
	}
	if recs == nil {
		recs = []core.RawRecord{}
	}
	NewResponse().JSON(recs).Write(w)
}

// handleLegacyWorktime answers one record per valid requested date, dated
// dd-mm-yyyy. Dates without data come back zeroed.
func (s *Server) handleLegacyWorktime(w http.ResponseWriter, r *http.Request) {
	dates, err := ParseDatesParam(r.URL.Query(), s.deps.Today())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := withUpstreamTimeout(r)
	defer cancel()
	recs, err := s.deps.Source.FetchLive(ctx, dates)
	if err != nil {
		s.logger.ErrorContext(ctx, "Legacy worktime fetch failed", applog.FieldError, err)
		InternalServerError("Failed to fetch worktime").Write(w)
		return
	}

	byDate := make(map[core.DateKey]core.RawRecord, len(recs))
	for _, rec := range recs {
		if d, err := core.ParseDateKey(rec.Date); err == nil {
			byDate[d] = rec
		}
	}
	out := make([]core.RawRecord, 0, len(dates))
	for _, d := range dates {
		rec, ok := byDate[d]
		if !ok {
			rec = core.RawRecord{DetailedWork: []byte("[]")}
		}
		rec.Date = d.APIString()
		out = append(out, rec)
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) handleLegacyHourlyRate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withUpstreamTimeout(r)
	defer cancel()
	rate, err := s.deps.Settings.HourlyRate(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Legacy hourly rate failed", applog.FieldError, err)
		InternalServerError("Failed to read hourly rate").Write(w)
		return
	}
	NewResponse().JSON(rate).Write(w)
}

func (s *Server) handleLegacyGetTargetHours(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withUpstreamTimeout(r)
	defer cancel()
	hours, err := s.deps.Settings.TargetHours(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Legacy target hours failed", applog.FieldError, err)
		InternalServerError("Failed to read target hours").Write(w)
		return
	}
	NewResponse().JSON(hours).Write(w)
}

// handleLegacySetTargetHours echoes the stored value.
func (s *Server) handleLegacySetTargetHours(w http.ResponseWriter, r *http.Request) {
	hours, err := strconv.Atoi(r.URL.Query().Get("hours"))
	if err != nil || core.ValidateTargetHours(hours) != nil {
		BadRequestError("hours must be between 1 and 168").Write(w)
		return
	}

	ctx, cancel := withUpstreamTimeout(r)
	defer cancel()
	if err := s.deps.Settings.SetTargetHours(ctx, hours); err != nil {
		s.logger.ErrorContext(ctx, "Legacy set target hours failed", applog.FieldError, err)
		InternalServerError("Failed to set target hours").Write(w)
		return
	}
	NewResponse().JSON(hours).Write(w)
}

func (s *Server) handleLegacyUpdateExtraMinutes(w http.ResponseWriter, r *http.Request) {
	date, minutes, errResp := parseExtraMinutes(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	if errResp := s.updateExtraMinutes(r.Context(), date, minutes); errResp != nil {
		errResp.Write(w)
		return
	}
	NewResponse().JSON(map[string]string{"message": "Extra minutes updated successfully"}).Write(w)
}
