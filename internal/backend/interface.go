package backend

import (
	"context"

	"workhours/internal/cache"
	"workhours/internal/services"
	"workhours/internal/sources"
)

// Backend is what every data backend provides: work data and settings.
type Backend interface {
	sources.WorkDataSource
	sources.SettingsStore
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend and what else the server wires from it.
// Writer is nil for read-only backends, Publisher when no broker is
// configured, Ready when there is nothing to check.
type BackendResult struct {
	Backend   Backend
	Writer    sources.ExtraMinutesWriter
	Publisher services.SyncPublisher
	Ready     func(ctx context.Context) error
	// Caches are registered with the process cache.Manager by name.
	Caches  map[string]cache.Cleaner
	Cleanup CleanupFunc
}

// Close runs Cleanup if set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
