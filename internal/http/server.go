package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"workhours/internal/cache"
	"workhours/internal/core"
	applog "workhours/internal/log"
	"workhours/internal/middleware/ratelimit"
	"workhours/internal/middleware/security"
	"workhours/internal/middleware/trace"
	"workhours/internal/services"
	"workhours/internal/sources"
	appweb "workhours/web"
)

// Deps are the services behind the HTTP surface. Currency, ExtraMinutes and
// Ready are optional.
type Deps struct {
	Dashboard    *services.Dashboard
	Source       sources.WorkDataSource
	Settings     sources.SettingsStore
	Currency     sources.CurrencyProvider
	ExtraMinutes *services.ExtraMinutesService
	Projection   *services.ProjectionService
	Caches       *cache.Manager
	Ready        func(ctx context.Context) error
	Today        func() core.DateKey
	Defaults     core.Settings
}

type Options struct {
	RequestsPerMinute int
	TrustedProxies    []string
	Logger            *applog.Logger
}

type Server struct {
	http.Server
	deps      Deps
	templates *template.Template
	logger    *applog.Logger
	events    *applog.StructuredLogger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	if deps.Today == nil {
		deps.Today = func() core.DateKey { return core.DateKeyOf(time.Now()) }
	}
	if deps.Caches == nil {
		deps.Caches = cache.NewManager()
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentHTTP})
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, "error", err)
		}
	}
	rlCfg := ratelimit.DefaultConfig()
	if opts.RequestsPerMinute > 0 {
		rlCfg.RequestsPerMinute = opts.RequestsPerMinute
	}
	limiter := ratelimit.NewLimiter(rlCfg)
	deps.Caches.Register("rate_limit", limiter.Cache())

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		deps:     deps,
		logger:   logger,
		events:   applog.NewStructuredLogger(logger.WithComponent(applog.ComponentDashboard)),
		limiter:  limiter,
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, logger),
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticCache(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	s.routes(mux)

	var h http.Handler = mux
	h = applog.ComponentMiddleware(applog.ComponentHTTP)(h)
	h = applog.Middleware(logger)(h)
	h = limiter.Middleware(detector.ExtractClientIP, s.onRateLimited)(h)
	h = detector.Middleware(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = s.tracer.Middleware(h)
	s.Handler = h

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// dashboard controller
	mux.HandleFunc("GET /api/dashboard", s.handleDashboardState)
	mux.HandleFunc("POST /api/dashboard/{action}", s.handleDashboardAction)
	mux.HandleFunc("GET /api/projection", s.handleProjection)
	mux.HandleFunc("GET /api/report", s.handleReport)

	// proxy API
	mux.HandleFunc("GET /api/work-data", s.handleWorkData)
	mux.HandleFunc("GET /api/work-data/today", s.handleTodayWork)
	mux.HandleFunc("GET /api/hourly-rate", s.handleHourlyRate)
	mux.HandleFunc("GET /api/target-hours", s.handleGetTargetHours)
	mux.HandleFunc("POST /api/target-hours", s.handleSetTargetHours)
	mux.HandleFunc("GET /api/currency", s.handleCurrency)
	mux.HandleFunc("POST /api/extra-minutes", s.handleExtraMinutes)

	// legacy backend
	mux.HandleFunc("GET /work-data", s.handleLegacyWorkData)
	mux.HandleFunc("GET /worktime", s.handleLegacyWorktime)
	mux.HandleFunc("GET /hourlyRate", s.handleLegacyHourlyRate)
	mux.HandleFunc("GET /getTargetHours", s.handleLegacyGetTargetHours)
	mux.HandleFunc("GET /setTargetHours", s.handleLegacySetTargetHours)
	mux.HandleFunc("POST /update-extra-minutes", s.handleLegacyUpdateExtraMinutes)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// Shutdown gracefully shuts down the server. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			ServiceUnavailableError("not ready").Write(w)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type metricsBody struct {
	Caches    map[string]cache.Stats    `json:"caches"`
	RateLimit ratelimit.Metrics         `json:"rateLimit"`
	Requests  trace.Metrics             `json:"requests"`
	Security  security.DetectionMetrics `json:"security"`
	Dashboard *services.DashboardStats  `json:"dashboard,omitempty"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	body := metricsBody{
		Caches:    s.deps.Caches.Stats(),
		RateLimit: s.limiter.GetMetrics(),
		Requests:  s.tracer.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	}
	if s.deps.Dashboard != nil {
		st := s.deps.Dashboard.Stats()
		body.Dashboard = &st
	}
	NewResponse().JSON(body).Write(w)
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"hm": core.FormatDuration,
		"money": func(v float64) string {
			return core.FormatNumber(v, 2)
		},
		"signed": func(minutes int) string {
			if minutes < 0 {
				return "-" + core.FormatDuration(-minutes)
			}
			return "+" + core.FormatDuration(minutes)
		},
	}
}
