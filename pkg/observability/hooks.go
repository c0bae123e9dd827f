// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about trace execution, cache operations, and administrative
// commands issued against queue managers.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetTraceHooks(&myTraceHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Trace().OnHopStart(ctx, manager, object)
//	// ... process the hop ...
//	observability.Trace().OnHopComplete(ctx, manager, object, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Trace Hooks
// =============================================================================

// TraceHooks receives events from topology traversals.
type TraceHooks interface {
	// Traversal events
	OnTraceStart(ctx context.Context, traceID, manager, object string)
	OnTraceComplete(ctx context.Context, traceID string, nodeCount int, duration time.Duration)

	// Hop events
	OnHopStart(ctx context.Context, manager, object string)
	OnHopComplete(ctx context.Context, manager, object string, duration time.Duration, err error)

	// OnLoopDetected records a traversal stopped at an already-visited manager.
	OnLoopDetected(ctx context.Context, manager string)
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
// Admin Hooks
// =============================================================================

// AdminHooks receives events from administrative command execution.
type AdminHooks interface {
	// OnCommand records an administrative command issued to a manager.
	OnCommand(ctx context.Context, manager, command string)

	// OnCommandComplete records the command's outcome.
	OnCommandComplete(ctx context.Context, manager, command string, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopTraceHooks is a no-op implementation of TraceHooks.
type NoopTraceHooks struct{}

func (NoopTraceHooks) OnTraceStart(context.Context, string, string, string)              {}
func (NoopTraceHooks) OnTraceComplete(context.Context, string, int, time.Duration)       {}
func (NoopTraceHooks) OnHopStart(context.Context, string, string)                        {}
func (NoopTraceHooks) OnHopComplete(context.Context, string, string, time.Duration, error) {
}
func (NoopTraceHooks) OnLoopDetected(context.Context, string) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopAdminHooks is a no-op implementation of AdminHooks.
type NoopAdminHooks struct{}

func (NoopAdminHooks) OnCommand(context.Context, string, string)                                {}
func (NoopAdminHooks) OnCommandComplete(context.Context, string, string, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	traceHooks TraceHooks = NoopTraceHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	adminHooks AdminHooks = NoopAdminHooks{}
	hooksMu    sync.RWMutex
)

// SetTraceHooks registers custom trace hooks.
// This should be called once at application startup before any traversals.
func SetTraceHooks(h TraceHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		traceHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetAdminHooks registers custom admin hooks.
// This should be called once at application startup before any commands run.
func SetAdminHooks(h AdminHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		adminHooks = h
	}
}

// Trace returns the registered trace hooks.
func Trace() TraceHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return traceHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Admin returns the registered admin hooks.
func Admin() AdminHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return adminHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	traceHooks = NoopTraceHooks{}
	cacheHooks = NoopCacheHooks{}
	adminHooks = NoopAdminHooks{}
}
