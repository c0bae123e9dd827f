package trace

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vsundar/flowtrace/pkg/cache"
	"github.com/vsundar/flowtrace/pkg/observability"
)

// Runner wraps a Tracer with result caching. Both the CLI and the HTTP
// service go through a Runner so caching behavior lives in one place.
//
// The Runner is stateless apart from the cache and logger; concurrent calls
// with different starting refs are safe.
type Runner struct {
	Tracer *Tracer
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL bounds cached trace lifetime. Zero uses the cache package default.
	TTL time.Duration
}

// NewRunner creates a runner around the given tracer.
// A nil cache disables caching; a nil keyer uses the default.
func NewRunner(t *Tracer, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Tracer: t,
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// RunOptions controls a single Run invocation.
type RunOptions struct {
	// Refresh bypasses the cache and re-resolves the topology.
	Refresh bool
}

// Run resolves the starting ref, serving a cached flow graph when one is
// still valid. The second return reports whether the result came from
// cache. Cache failures never fail the run; they degrade to a fresh trace.
func (r *Runner) Run(ctx context.Context, start Ref, opts RunOptions) (*FlowGraph, bool, error) {
	if err := start.Validate(); err != nil {
		return nil, false, err
	}
	key := r.Keyer.TraceKey(start.Manager, start.Object, cache.TraceKeyOpts{Type: string(start.Type)})

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var g FlowGraph
			if err := json.Unmarshal(data, &g); err == nil {
				observability.Cache().OnCacheHit(ctx, "trace")
				r.Logger.Debug("trace served from cache",
					"manager", start.Manager, "object", start.Object)
				return &g, true, nil
			}
			// Corrupt entry: drop it and re-trace.
			_ = r.Cache.Delete(ctx, key)
		}
		observability.Cache().OnCacheMiss(ctx, "trace")
	}

	g, err := r.Tracer.Trace(ctx, start)
	if err != nil {
		return nil, false, err
	}

	ttl := r.TTL
	if ttl <= 0 {
		ttl = cache.TTLTrace
	}
	if data, err := json.Marshal(g); err == nil {
		if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
			r.Logger.Warn("trace cache write failed", "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "trace", len(data))
		}
	}
	return g, false, nil
}

// Close releases the runner's cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
