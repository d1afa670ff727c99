package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"workhours/internal/core"
	"workhours/internal/sources"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

var (
	// ErrRangeFetch wraps failures to read a period from the data source.
	ErrRangeFetch = errors.New("range fetch failed")
	// ErrSuperseded is returned by a load whose result was discarded because
	// a newer load was issued while it was running.
	ErrSuperseded = errors.New("load superseded by a newer request")
)

// DashboardState is an immutable snapshot of the view model.
type DashboardState struct {
	Status        Status                `json:"status"`
	Mode          core.ViewMode         `json:"viewMode"`
	Range         core.DateRange        `json:"range"`
	PreviousRange core.DateRange        `json:"previousRange"`
	Label         string                `json:"label"`
	Current       core.WorkPeriodTotals `json:"current"`
	Previous      core.WorkPeriodTotals `json:"previous"`
	Today         *core.TodayWidget     `json:"today"`
	Err           error                 `json:"-"`
	Error         string                `json:"error,omitempty"`
	Sequence      uint64                `json:"sequence"`
	LoadedAt      time.Time             `json:"loadedAt,omitzero"`
}

// DashboardStats are counters exposed on the metrics endpoint.
type DashboardStats struct {
	Loads      int64 `json:"loads"`
	Failures   int64 `json:"failures"`
	Superseded int64 `json:"superseded"`
}

type DashboardConfig struct {
	Mode        core.ViewMode
	LoadTimeout time.Duration
}

// Dashboard owns the period view model. It runs the fetch, normalize, merge
// and aggregate pipeline on every navigation and publishes each committed
// state to its subscribers. Only the most recently issued load may commit.
type Dashboard struct {
	source     sources.WorkDataSource
	reconciler *TodayReconciler
	today      func() core.DateKey
	timeout    time.Duration

	mu     sync.Mutex
	state  DashboardState
	seq    uint64
	subs   []subscriber
	nextID int

	loads, failures, superseded atomic.Int64
}

type subscriber struct {
	id int
	fn func(DashboardState)
}

func NewDashboard(source sources.WorkDataSource, today func() core.DateKey, cfg DashboardConfig) *Dashboard {
	if cfg.Mode == "" {
		cfg.Mode = core.ViewWeek
	}
	rng := core.PeriodFor(today(), cfg.Mode)
	return &Dashboard{
		source:     source,
		reconciler: NewTodayReconciler(source, today),
		today:      today,
		timeout:    cfg.LoadTimeout,
		state: DashboardState{
			Status:        StatusIdle,
			Mode:          cfg.Mode,
			Range:         rng,
			PreviousRange: core.PreviousPeriod(rng, cfg.Mode),
			Label:         rng.Label(cfg.Mode),
		},
	}
}

// State returns the current snapshot.
func (d *Dashboard) State() DashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dashboard) Stats() DashboardStats {
	return DashboardStats{
		Loads:      d.loads.Load(),
		Failures:   d.failures.Load(),
		Superseded: d.superseded.Load(),
	}
}

// Subscribe registers fn for every committed state change, including the
// switch to loading. fn runs on the goroutine that made the change and
// must not block. The returned func removes the subscription.
func (d *Dashboard) Subscribe(fn func(DashboardState)) (unsubscribe func()) {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.subs = append(d.subs, subscriber{id: id, fn: fn})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			d.subs = slices.DeleteFunc(d.subs, func(s subscriber) bool { return s.id == id })
		})
	}
}

// Load reloads the active period.
func (d *Dashboard) Load(ctx context.Context) (DashboardState, error) {
	return d.navigate(ctx, func(s *DashboardState) {})
}

// Next moves to the following period.
func (d *Dashboard) Next(ctx context.Context) (DashboardState, error) {
	return d.navigate(ctx, func(s *DashboardState) {
		s.Range = core.NextPeriod(s.Range, s.Mode)
	})
}

// Previous moves to the preceding period.
func (d *Dashboard) Previous(ctx context.Context) (DashboardState, error) {
	return d.navigate(ctx, func(s *DashboardState) {
		s.Range = core.PreviousPeriod(s.Range, s.Mode)
	})
}

// GoToToday moves to the period containing today.
func (d *Dashboard) GoToToday(ctx context.Context) (DashboardState, error) {
	today := d.today()
	return d.navigate(ctx, func(s *DashboardState) {
		s.Range = core.PeriodFor(today, s.Mode)
	})
}

// SetViewMode switches mode. The new period is anchored on today when today
// is visible, otherwise on the start of the current range.
func (d *Dashboard) SetViewMode(ctx context.Context, mode core.ViewMode) (DashboardState, error) {
	if _, err := core.ParseViewMode(string(mode)); err != nil {
		return d.State(), err
	}
	today := d.today()
	return d.navigate(ctx, func(s *DashboardState) {
		ref := s.Range.Start
		if s.Range.Contains(today) {
			ref = today
		}
		s.Mode = mode
		s.Range = core.PeriodFor(ref, mode)
	})
}

func (d *Dashboard) navigate(ctx context.Context, move func(*DashboardState)) (DashboardState, error) {
	d.mu.Lock()
	move(&d.state)
	d.seq++
	seq := d.seq
	d.state.PreviousRange = core.PreviousPeriod(d.state.Range, d.state.Mode)
	d.state.Label = d.state.Range.Label(d.state.Mode)
	d.state.Status = StatusLoading
	d.state.Sequence = seq
	mode, rng, prev := d.state.Mode, d.state.Range, d.state.PreviousRange
	snapshot, subs := d.state, slices.Clone(d.subs)
	d.mu.Unlock()

	d.loads.Add(1)
	publish(subs, snapshot)

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	slog.DebugContext(ctx, "Loading dashboard",
		"sequence", seq, "view_mode", mode, "range_start", rng.Start.String(), "range_end", rng.End.String())

	current, previous, today, err := d.pipeline(ctx, rng, prev)
	return d.commit(ctx, seq, func(s *DashboardState) {
		if err != nil {
			s.Status = StatusError
			s.Err = err
			s.Error = err.Error()
			return
		}
		s.Status = StatusReady
		s.Current = current
		s.Previous = previous
		s.Today = today
		s.Err = nil
		s.Error = ""
		s.LoadedAt = time.Now()
	})
}

// pipeline fetches both periods in parallel, normalizes them, merges live
// data for today into the current period and aggregates.
func (d *Dashboard) pipeline(ctx context.Context, rng, prev core.DateRange) (cur, old core.WorkPeriodTotals, today *core.TodayWidget, err error) {
	var curRaw, prevRaw []core.RawRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := d.source.FetchRange(gctx, rng.Start, rng.End)
		if err != nil {
			return fmt.Errorf("current period %s..%s: %w", rng.Start, rng.End, err)
		}
		curRaw = recs
		return nil
	})
	g.Go(func() error {
		recs, err := d.source.FetchRange(gctx, prev.Start, prev.End)
		if err != nil {
			return fmt.Errorf("previous period %s..%s: %w", prev.Start, prev.End, err)
		}
		prevRaw = recs
		return nil
	})
	if err := g.Wait(); err != nil {
		return cur, old, nil, fmt.Errorf("%w: %w", ErrRangeFetch, err)
	}

	entries, today := d.reconciler.Merge(ctx, Normalize(curRaw, rng), rng)
	return core.Aggregate(entries), core.Aggregate(Normalize(prevRaw, prev)), today, nil
}

func (d *Dashboard) commit(ctx context.Context, seq uint64, apply func(*DashboardState)) (DashboardState, error) {
	d.mu.Lock()
	if seq != d.seq {
		current := d.state
		d.mu.Unlock()
		d.superseded.Add(1)
		slog.DebugContext(ctx, "Discarding superseded dashboard load", "sequence", seq, "latest", current.Sequence)
		return current, ErrSuperseded
	}
	apply(&d.state)
	snapshot, subs := d.state, slices.Clone(d.subs)
	d.mu.Unlock()

	if snapshot.Err != nil {
		d.failures.Add(1)
		slog.ErrorContext(ctx, "Dashboard load failed", "sequence", seq, "error", snapshot.Err)
	}
	publish(subs, snapshot)
	return snapshot, snapshot.Err
}

func publish(subs []subscriber, s DashboardState) {
	for _, sub := range subs {
		sub.fn(s)
	}
}
