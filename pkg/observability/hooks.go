// Package observability provides hooks for metrics and tracing.
//
// Library packages emit events through the registered hooks without
// depending on a metrics backend. The defaults are no-ops; the CLI installs
// the Prometheus implementation from [promhooks] when --metrics-file is set.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetResolveHooks(myResolveHooks)
//	    observability.SetApplyHooks(myApplyHooks)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Resolve().OnResolveStart(ctx, len(changeset.Packages))
//	// ... resolve ...
//	observability.Resolve().OnResolveComplete(ctx, stats, duration, err)
//
// [promhooks]: github.com/matzehuels/stackbump/pkg/observability/promhooks
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Resolve Hooks
// =============================================================================

// ResolveStats summarises a finished resolution.
type ResolveStats struct {
	Packages   int // discovered packages
	Direct     int // direct updates
	Propagated int // propagated updates
	Cycles     int // circular dependencies found
	CacheHit   bool
}

// ResolveHooks receives events from version resolution.
type ResolveHooks interface {
	OnResolveStart(ctx context.Context, changesetPackages int)
	OnResolveComplete(ctx context.Context, stats ResolveStats, duration time.Duration, err error)
}

// =============================================================================
// Apply Hooks
// =============================================================================

// ApplyHooks receives events from manifest application.
type ApplyHooks interface {
	OnApplyStart(ctx context.Context, files int, dryRun bool)
	// OnFileWritten fires after each successful manifest write.
	OnFileWritten(ctx context.Context, path string)
	// OnRollback fires when backups are restored after a failed write.
	OnRollback(ctx context.Context, restored int, cause error)
	OnApplyComplete(ctx context.Context, modified int, dryRun bool, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopResolveHooks is a no-op implementation of ResolveHooks.
type NoopResolveHooks struct{}

func (NoopResolveHooks) OnResolveStart(context.Context, int)                                   {}
func (NoopResolveHooks) OnResolveComplete(context.Context, ResolveStats, time.Duration, error) {}

// NoopApplyHooks is a no-op implementation of ApplyHooks.
type NoopApplyHooks struct{}

func (NoopApplyHooks) OnApplyStart(context.Context, int, bool)                          {}
func (NoopApplyHooks) OnFileWritten(context.Context, string)                            {}
func (NoopApplyHooks) OnRollback(context.Context, int, error)                           {}
func (NoopApplyHooks) OnApplyComplete(context.Context, int, bool, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	resolveHooks ResolveHooks = NoopResolveHooks{}
	applyHooks   ApplyHooks   = NoopApplyHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	hooksMu      sync.RWMutex
)

// SetResolveHooks registers custom resolve hooks.
// This should be called once at application startup before any resolution.
func SetResolveHooks(h ResolveHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		resolveHooks = h
	}
}

// SetApplyHooks registers custom apply hooks.
func SetApplyHooks(h ApplyHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		applyHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Resolve returns the registered resolve hooks.
func Resolve() ResolveHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return resolveHooks
}

// Apply returns the registered apply hooks.
func Apply() ApplyHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return applyHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	resolveHooks = NoopResolveHooks{}
	applyHooks = NoopApplyHooks{}
	cacheHooks = NoopCacheHooks{}
}
