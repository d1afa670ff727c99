package services

import (
	"context"
	"sync"

	"workhours/internal/core"
)

// fakeSource is a scriptable WorkDataSource.
type fakeSource struct {
	mu        sync.Mutex
	rangeFn   func(ctx context.Context, start, end core.DateKey) ([]core.RawRecord, error)
	liveFn    func(ctx context.Context, dates []core.DateKey) ([]core.RawRecord, error)
	liveCalls [][]core.DateKey
}

func (f *fakeSource) FetchRange(ctx context.Context, start, end core.DateKey) ([]core.RawRecord, error) {
	if f.rangeFn == nil {
		return nil, nil
	}
	return f.rangeFn(ctx, start, end)
}

func (f *fakeSource) FetchLive(ctx context.Context, dates []core.DateKey) ([]core.RawRecord, error) {
	f.mu.Lock()
	f.liveCalls = append(f.liveCalls, dates)
	f.mu.Unlock()
	if f.liveFn == nil {
		return nil, nil
	}
	return f.liveFn(ctx, dates)
}

func (f *fakeSource) calls() [][]core.DateKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]core.DateKey(nil), f.liveCalls...)
}

func fixedDay(s string) func() core.DateKey {
	d := core.MustParseDateKey(s)
	return func() core.DateKey { return d }
}
