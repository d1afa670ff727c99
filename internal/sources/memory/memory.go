// Package memory is the demo data source: days are generated on first read,
// kept in memory and optionally persisted to disk. Everything is discarded
// once the store has been idle for longer than its TTL.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"workhours/internal/core"
)

const (
	DefaultTTL         = 4 * time.Hour
	DefaultHourlyRate  = 50
	DefaultTargetHours = 40

	accessSaveInterval = time.Minute
)

// Persister stores generated days between restarts.
type Persister interface {
	Load(ctx context.Context) (days map[core.DateKey]core.RawRecord, lastAccess time.Time, err error)
	SaveDay(rec core.RawRecord) error
	SaveAccess(t time.Time) error
	Clear() error
}

type Store struct {
	mu          sync.Mutex
	days        map[core.DateKey]core.RawRecord
	lastAccess  time.Time
	lastSaved   time.Time
	ttl         time.Duration
	gen         *Generator
	disk        Persister
	now         func() time.Time
	loc         *time.Location
	hourlyRate  float64
	targetHours int
}

type Option func(*Store)

func WithTTL(ttl time.Duration) Option { return func(s *Store) { s.ttl = ttl } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithSeed(seed int64) Option { return func(s *Store) { s.gen = NewGenerator(seed) } }

// WithLocation sets the zone used to decide what "today" is.
func WithLocation(loc *time.Location) Option { return func(s *Store) { s.loc = loc } }

func WithPersister(p Persister) Option { return func(s *Store) { s.disk = p } }

func WithSettings(hourlyRate float64, targetHours int) Option {
	return func(s *Store) {
		s.hourlyRate = hourlyRate
		s.targetHours = targetHours
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		days:        make(map[core.DateKey]core.RawRecord),
		ttl:         DefaultTTL,
		now:         time.Now,
		loc:         time.Local,
		hourlyRate:  DefaultHourlyRate,
		targetHours: DefaultTargetHours,
	}
	for _, o := range opts {
		o(s)
	}
	if s.gen == nil {
		s.gen = NewGenerator(s.now().UnixNano())
	}
	s.lastAccess = s.now()
	return s
}

// Restore loads previously persisted days. A load error leaves the store
// empty rather than failing startup.
func (s *Store) Restore(ctx context.Context) {
	if s.disk == nil {
		return
	}
	days, last, err := s.disk.Load(ctx)
	if err != nil {
		slog.Warn("Demo data load failed, starting fresh", "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.days = days
	if !last.IsZero() {
		s.lastAccess = last
	}
	s.expireLocked()
	slog.Info("Demo data restored", "days", len(s.days))
}

// FetchRange returns one record per date in [start, end] with ISO dates,
// generating missing past days on the fly.
func (s *Store) FetchRange(ctx context.Context, start, end core.DateKey) ([]core.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.getRange(core.EnumerateDates(core.DateRange{Start: start, End: end})), nil
}

// FetchLive returns records for dates with dd-mm-yyyy dates, like the
// legacy worktime endpoint.
func (s *Store) FetchLive(ctx context.Context, dates []core.DateKey) ([]core.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs := s.getRange(dates)
	for i := range recs {
		if k, err := core.ParseDateKey(recs[i].Date); err == nil {
			recs[i].Date = k.APIString()
		}
	}
	return recs, nil
}

func (s *Store) getRange(dates []core.DateKey) []core.RawRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()

	today := core.DateKeyOf(s.now().In(s.loc))
	out := make([]core.RawRecord, 0, len(dates))
	for _, d := range dates {
		if d.After(today) {
			continue
		}
		rec, ok := s.days[d]
		if !ok {
			rec = s.gen.Day(d)
			s.days[d] = rec
			s.persistDay(rec)
		}
		out = append(out, rec)
	}
	s.touchLocked()
	return out
}

// UpdateExtraMinutes sets the extra minutes for date, creating an empty day
// if none exists yet.
func (s *Store) UpdateExtraMinutes(_ context.Context, date core.DateKey, minutes int) error {
	if err := core.ValidateExtraMinutes(minutes); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	rec, ok := s.days[date]
	if !ok {
		rec = EmptyDay(date)
	}
	rec.ExtraMinutes = core.FlexInt(minutes)
	s.days[date] = rec
	s.persistDay(rec)
	s.touchLocked()
	return nil
}

func (s *Store) HourlyRate(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hourlyRate, nil
}

func (s *Store) TargetHours(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetHours, nil
}

func (s *Store) SetTargetHours(_ context.Context, hours int) error {
	if err := core.ValidateTargetHours(hours); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetHours = hours
	return nil
}

// Len reports how many days are currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.days)
}

func (s *Store) expireLocked() {
	if s.ttl <= 0 || s.now().Sub(s.lastAccess) <= s.ttl {
		return
	}
	slog.Info("Demo data expired, clearing", "days", len(s.days), "idle", s.now().Sub(s.lastAccess).String())
	s.days = make(map[core.DateKey]core.RawRecord)
	s.lastAccess = s.now()
	s.lastSaved = time.Time{}
	if s.disk != nil {
		if err := s.disk.Clear(); err != nil {
			slog.Warn("Demo data clear failed", "error", err)
		}
	}
}

// touchLocked records an access. The disk copy is refreshed at most once
// per accessSaveInterval.
func (s *Store) touchLocked() {
	s.lastAccess = s.now()
	if s.disk == nil || (!s.lastSaved.IsZero() && s.lastAccess.Sub(s.lastSaved) < accessSaveInterval) {
		return
	}
	if err := s.disk.SaveAccess(s.lastAccess); err != nil {
		slog.Warn("Demo data access save failed", "error", err)
		return
	}
	s.lastSaved = s.lastAccess
}

func (s *Store) persistDay(rec core.RawRecord) {
	if s.disk == nil {
		return
	}
	if err := s.disk.SaveDay(rec); err != nil {
		slog.Warn("Demo day save failed", "date", rec.Date, "error", err)
	}
}
