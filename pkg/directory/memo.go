package directory

import (
	"context"
	"sync"
)

// Memo caches Lookup results in memory, including misses, so that one
// traversal queries the directory at most once per distinct manager.
//
// A Memo must not outlive the run it was created for: directory rows can
// change between runs and a stale Memo would hide that. Create a fresh one
// per traversal.
type Memo struct {
	inner Service

	mu      sync.Mutex
	entries map[string]memoEntry
}

type memoEntry struct {
	conn Connection
	err  error
}

// NewMemo wraps inner with per-run lookup memoization.
func NewMemo(inner Service) *Memo {
	return &Memo{
		inner:   inner,
		entries: make(map[string]memoEntry),
	}
}

// Lookup returns the memoized result for manager, querying inner on first use.
func (m *Memo) Lookup(ctx context.Context, manager string) (Connection, error) {
	m.mu.Lock()
	if e, ok := m.entries[manager]; ok {
		m.mu.Unlock()
		return e.conn, e.err
	}
	m.mu.Unlock()

	conn, err := m.inner.Lookup(ctx, manager)

	m.mu.Lock()
	m.entries[manager] = memoEntry{conn: conn, err: err}
	m.mu.Unlock()
	return conn, err
}

// Ensure Memo implements Service.
var _ Service = (*Memo)(nil)
