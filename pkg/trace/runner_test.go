package trace

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vsundar/flowtrace/pkg/admin"
	"github.com/vsundar/flowtrace/pkg/cache"
)

// memCache is a minimal in-memory cache for runner tests.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	return data, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *memCache) Close() error { return nil }

func newTestRunner(t *testing.T) (*Runner, *fakeQuerier) {
	t.Helper()
	tracer, querier := newTestTracer(map[string]*fakeBroker{
		"QM1": {queues: map[string]admin.QueueAttributes{
			"ORDERS": {Name: "ORDERS", Type: admin.QueueTypeLocal},
		}},
	})
	return NewRunner(tracer, newMemCache(), nil, log.New(io.Discard)), querier
}

func TestRunnerCachesTraces(t *testing.T) {
	ctx := context.Background()
	runner, querier := newTestRunner(t)
	start := Ref{Manager: "QM1", Object: "ORDERS", Type: ObjectQueue}

	g1, hit, err := runner.Run(ctx, start, RunOptions{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if hit {
		t.Error("first run should miss the cache")
	}
	if querier.connects != 1 {
		t.Fatalf("connects = %d, want 1", querier.connects)
	}

	g2, hit, err := runner.Run(ctx, start, RunOptions{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !hit {
		t.Error("second run should hit the cache")
	}
	if querier.connects != 1 {
		t.Errorf("connects = %d after cached run, want 1", querier.connects)
	}
	if g2.TraceID != g1.TraceID {
		t.Errorf("cached trace ID = %q, want %q", g2.TraceID, g1.TraceID)
	}
}

func TestRunnerRefreshBypassesCache(t *testing.T) {
	ctx := context.Background()
	runner, querier := newTestRunner(t)
	start := Ref{Manager: "QM1", Object: "ORDERS", Type: ObjectQueue}

	if _, _, err := runner.Run(ctx, start, RunOptions{}); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if _, hit, err := runner.Run(ctx, start, RunOptions{Refresh: true}); err != nil || hit {
		t.Fatalf("refresh run: hit=%v err=%v", hit, err)
	}
	if querier.connects != 2 {
		t.Errorf("connects = %d, want 2 (refresh must re-trace)", querier.connects)
	}
}

func TestRunnerInvalidStart(t *testing.T) {
	runner, _ := newTestRunner(t)
	if _, _, err := runner.Run(context.Background(), Ref{}, RunOptions{}); err == nil {
		t.Error("expected error for invalid start ref")
	}
}

func TestRunnerNilCacheDefaults(t *testing.T) {
	tracer, _ := newTestTracer(map[string]*fakeBroker{
		"QM1": {queues: map[string]admin.QueueAttributes{
			"Q": {Name: "Q", Type: admin.QueueTypeLocal},
		}},
	})
	runner := NewRunner(tracer, nil, nil, nil)
	defer runner.Close()

	if _, ok := runner.Cache.(*cache.NullCache); !ok {
		t.Errorf("nil cache should default to NullCache, got %T", runner.Cache)
	}
	if _, _, err := runner.Run(context.Background(), Ref{Manager: "QM1", Object: "Q", Type: ObjectQueue}, RunOptions{}); err != nil {
		t.Errorf("Run error: %v", err)
	}
}
