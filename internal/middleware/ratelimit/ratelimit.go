// Package ratelimit limits requests per client IP with fixed one-minute windows.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"workhours/internal/cache"
)

type Config struct {
	RequestsPerMinute int
	// MaxClients bounds memory; the least recently seen client is forgotten first.
	MaxClients int
	// Exempt paths are never limited (health checks).
	Exempt []string
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		MaxClients:        10000,
		Exempt:            []string{"/healthz", "/readyz"},
	}
}

type window struct {
	start time.Time
	count int
}

type Limiter struct {
	mu      sync.Mutex
	clients *cache.LRUCache[window]
	limit   int
	period  time.Duration
	now     func() time.Time
	exempt  map[string]bool

	allowed atomic.Int64
	limited atomic.Int64
}

type Metrics struct {
	Allowed     int64 `json:"allowed"`
	Limited     int64 `json:"limited"`
	ClientCount int   `json:"clients"`
}

func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.MaxClients <= 0 {
		config.MaxClients = def.MaxClients
	}
	exempt := make(map[string]bool, len(config.Exempt))
	for _, p := range config.Exempt {
		exempt[p] = true
	}
	return &Limiter{
		clients: cache.NewLRUCache[window](config.MaxClients, time.Minute),
		limit:   config.RequestsPerMinute,
		period:  time.Minute,
		now:     time.Now,
		exempt:  exempt,
	}
}

// WithClock replaces the time source, for tests.
func (rl *Limiter) WithClock(now func() time.Time) *Limiter {
	rl.now = now
	rl.clients.WithClock(now)
	return rl
}

// Allow reports whether clientIP may make another request, and how long it
// should wait otherwise.
func (rl *Limiter) Allow(clientIP string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients.Get(clientIP)
	if !ok || now.Sub(w.start) >= rl.period {
		w = window{start: now}
	}
	w.count++
	rl.clients.Set(clientIP, w)

	if w.count > rl.limit {
		rl.limited.Add(1)
		return false, w.start.Add(rl.period).Sub(now)
	}
	rl.allowed.Add(1)
	return true, 0
}

// Cache exposes client windows so a cache.Manager can sweep idle clients.
func (rl *Limiter) Cache() cache.Cleaner { return rl.clients }

func (rl *Limiter) ActiveClients() int {
	return rl.clients.Size()
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		Allowed:     rl.allowed.Load(),
		Limited:     rl.limited.Load(),
		ClientCount: rl.clients.Size(),
	}
}

// Middleware rejects over-limit requests with 429 and a Retry-After header.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.exempt[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ok, wait := rl.Allow(extractIP(r))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
			if !ok {
				secs := int(wait.Round(time.Second) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
