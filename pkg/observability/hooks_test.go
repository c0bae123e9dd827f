package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Trace hooks
	tr := NoopTraceHooks{}
	tr.OnTraceStart(ctx, "abc123", "QM1", "ORDERS")
	tr.OnHopStart(ctx, "QM1", "ORDERS")
	tr.OnHopComplete(ctx, "QM1", "ORDERS", time.Second, nil)
	tr.OnLoopDetected(ctx, "QM1")
	tr.OnTraceComplete(ctx, "abc123", 3, time.Second)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "trace")
	c.OnCacheMiss(ctx, "trace")
	c.OnCacheSet(ctx, "trace", 1024)

	// Admin hooks
	a := NoopAdminHooks{}
	a.OnCommand(ctx, "QM1", "DISPLAY QUEUE")
	a.OnCommandComplete(ctx, "QM1", "DISPLAY QUEUE", time.Second, nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Trace().(NoopTraceHooks); !ok {
		t.Error("Trace() should return NoopTraceHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Admin().(NoopAdminHooks); !ok {
		t.Error("Admin() should return NoopAdminHooks by default")
	}

	// Set custom hooks
	customTrace := &testTraceHooks{}
	SetTraceHooks(customTrace)
	if Trace() != customTrace {
		t.Error("SetTraceHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customAdmin := &testAdminHooks{}
	SetAdminHooks(customAdmin)
	if Admin() != customAdmin {
		t.Error("SetAdminHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Trace().(NoopTraceHooks); !ok {
		t.Error("Reset() should restore NoopTraceHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testTraceHooks{}
	SetTraceHooks(custom)

	// Setting nil should be ignored
	SetTraceHooks(nil)

	if Trace() != custom {
		t.Error("SetTraceHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testTraceHooks struct{ NoopTraceHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testAdminHooks struct{ NoopAdminHooks }
