// Package cache provides pluggable byte caches for trace results.
//
// Traces are expensive: one traversal opens an administrative session per
// manager on the path. Caching the serialized flow graph lets repeated
// lookups of the same destination skip the brokers entirely. Backends:
//
//   - FileCache: per-user directory cache for CLI usage
//   - RedisCache: shared cache for the HTTP service
//   - NullCache: caching disabled
//
// Keys never embed connection parameters or credentials, only the
// (manager, object, type) identity of the trace.
package cache

import (
	"context"
	"time"
)

// TTLTrace bounds how long a cached flow graph is served before the
// topology is re-resolved. Broker configuration changes rarely, but a stale
// trace is actively misleading, so the default is short.
const TTLTrace = 15 * time.Minute

// Cache stores opaque byte values under string keys with per-entry TTLs.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key and whether it was present.
	// An expired or missing entry is (nil, false, nil), not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A non-positive ttl stores without expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// TraceKeyOpts carries the parts of a trace's identity beyond manager and
// object name.
type TraceKeyOpts struct {
	Type string // "queue" or "topic"
}

// Keyer generates cache keys for trace results.
type Keyer interface {
	// TraceKey returns the key for one starting triple.
	TraceKey(manager, object string, opts TraceKeyOpts) string
}

// DefaultKeyer generates hash-based keys with a type prefix.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// TraceKey returns "trace:<sha256 of the triple>".
func (DefaultKeyer) TraceKey(manager, object string, opts TraceKeyOpts) string {
	return hashKey("trace", manager, object, opts.Type)
}
