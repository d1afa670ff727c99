package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Loader fronts a Cache with a load function. Concurrent misses for the same
// key share one call to load; failed loads are not cached.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group
	load  func(ctx context.Context, key string) (T, error)
}

func NewLoader[T any](c Cache[T], load func(ctx context.Context, key string) (T, error)) *Loader[T] {
	return &Loader[T]{cache: c, load: load}
}

func (l *Loader[T]) Get(ctx context.Context, key string) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}
	v, err, _ := l.group.Do(key, func() (any, error) {
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		v, err := l.load(ctx, key)
		if err != nil {
			return v, err
		}
		l.cache.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops key so the next Get reloads it.
func (l *Loader[T]) Invalidate(key string) {
	l.cache.Delete(key)
}

// InvalidateAll drops every cached key.
func (l *Loader[T]) InvalidateAll() {
	l.cache.Purge()
}
