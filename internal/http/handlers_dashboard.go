package http

import (
	"context"
	"errors"
	"net/http"

	"workhours/internal/core"
	applog "workhours/internal/log"
	"workhours/internal/services"
)

type dashboardPage struct {
	State      services.DashboardState
	Projection core.Projection
	Modes      []core.ViewMode
}

// handleIndex renders the dashboard page. The first visit triggers the
// initial load.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if s.deps.Dashboard == nil {
		http.Error(w, "dashboard not configured", http.StatusServiceUnavailable)
		return
	}

	st := s.deps.Dashboard.State()
	if st.Status == services.StatusIdle {
		st, _ = s.runTransition(r.Context(), applog.OpLoad, s.deps.Dashboard.Load)
	}

	data := dashboardPage{
		State:      st,
		Projection: s.project(r.Context(), st),
		Modes:      []core.ViewMode{core.ViewWeek, core.ViewMonth, core.ViewYear},
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "dashboard_page", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Dashboard template execution failed",
			applog.FieldError, err, applog.FieldOperation, applog.OpRender)
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func (s *Server) handleDashboardState(w http.ResponseWriter, r *http.Request) {
	if s.deps.Dashboard == nil {
		ServiceUnavailableError("dashboard not configured").Write(w)
		return
	}
	NewResponse().JSON(s.deps.Dashboard.State()).Write(w)
}

// handleDashboardAction runs load, next, previous, today or mode. A failed
// load still answers 200 with the error carried in the state; the previous
// period's data is kept.
func (s *Server) handleDashboardAction(w http.ResponseWriter, r *http.Request) {
	d := s.deps.Dashboard
	if d == nil {
		ServiceUnavailableError("dashboard not configured").Write(w)
		return
	}

	var transition func(context.Context) (services.DashboardState, error)
	action := r.PathValue("action")
	switch action {
	case "load":
		transition = d.Load
	case "next":
		transition = d.Next
	case "previous":
		transition = d.Previous
	case "today":
		transition = d.GoToToday
	case "mode":
		mode, err := core.ParseViewMode(r.URL.Query().Get("mode"))
		if err != nil {
			BadRequestError("mode must be week, month or year").Write(w)
			return
		}
		transition = func(ctx context.Context) (services.DashboardState, error) {
			return d.SetViewMode(ctx, mode)
		}
	default:
		NotFoundError("unknown dashboard action").Write(w)
		return
	}

	st, err := s.runTransition(r.Context(), action, transition)
	if errors.Is(err, services.ErrSuperseded) {
		// a newer navigation owns the state; report what it committed
		st = d.State()
	}
	NewResponse().
		TriggerDashboardChanged(st.Sequence, st.Mode).
		JSON(st).
		Write(w)
}

func (s *Server) runTransition(ctx context.Context, op string, fn func(context.Context) (services.DashboardState, error)) (services.DashboardState, error) {
	st, err := fn(ctx)
	s.events.LogDashboardTransition(ctx, op, st.Mode, st.Range, st.Sequence, string(st.Status), err)
	return st, err
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	if s.deps.Dashboard == nil {
		ServiceUnavailableError("dashboard not configured").Write(w)
		return
	}
	NewResponse().JSON(s.project(r.Context(), s.deps.Dashboard.State())).Write(w)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Dashboard == nil || s.deps.Projection == nil {
		ServiceUnavailableError("dashboard not configured").Write(w)
		return
	}
	ctx, cancel := withUpstreamTimeout(r)
	defer cancel()
	desc := sanitizeInput(r.URL.Query().Get("description"))
	NewResponse().Text(s.deps.Projection.Report(ctx, s.deps.Dashboard.State(), desc)).Write(w)
}

func (s *Server) project(ctx context.Context, st services.DashboardState) core.Projection {
	if s.deps.Projection == nil {
		return core.Project(st.Range, st.Current, st.Previous, s.deps.Defaults, core.CurrencyRate{}, s.deps.Today())
	}
	ctx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()
	return s.deps.Projection.Project(ctx, st)
}
