// Package trace resolves the physical delivery path of a queue or topic
// across a topology of independently managed brokers.
//
// The traversal is an iterative breadth-first walk over (manager, object)
// pairs: each hop connects to one manager through the directory and admin
// capabilities, classifies the object, records a [FlowNode], and enqueues
// whatever follow-up hops the classification implies. Cycle protection is
// by manager name, not (manager, object) pair: revisiting a manager for any
// object terminates that branch with a loop marker. This is deliberately
// coarse; it bounds total work by the number of distinct managers and keeps
// termination trivially provable.
//
// Every per-hop failure (directory miss, connect failure, object not found,
// query failure) is captured as a node-scoped error and the traversal
// continues with the remaining hops. The only hard failure Trace reports is
// a structurally invalid starting triple.
package trace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vsundar/flowtrace/pkg/admin"
	"github.com/vsundar/flowtrace/pkg/directory"
	"github.com/vsundar/flowtrace/pkg/observability"
)

// Tracer runs topology traversals. It is stateless between calls: each
// Trace invocation owns its pending queue, visited set, and result, so a
// single Tracer is safe for concurrent use by independent traversals as
// long as Directory and Querier are.
type Tracer struct {
	Directory directory.Service
	Querier   admin.Querier
	Logger    *log.Logger
}

// New creates a tracer over the given directory and admin capabilities.
// A nil logger falls back to the package default.
func New(dir directory.Service, querier admin.Querier, logger *log.Logger) *Tracer {
	if logger == nil {
		logger = log.Default()
	}
	return &Tracer{
		Directory: dir,
		Querier:   querier,
		Logger:    logger,
	}
}

// Trace resolves the delivery path starting from the given triple and
// returns the completed flow graph. The graph always reflects best-effort
// partial results; callers inspect per-node Error fields rather than expect
// all-or-nothing success. Trace itself fails only on an invalid start ref.
func (t *Tracer) Trace(ctx context.Context, start Ref) (*FlowGraph, error) {
	if err := start.Validate(); err != nil {
		return nil, err
	}

	traceID := uuid.NewString()
	started := time.Now()
	observability.Trace().OnTraceStart(ctx, traceID, start.Manager, start.Object)
	t.Logger.Info("starting trace",
		"trace_id", traceID, "manager", start.Manager, "object", start.Object, "type", start.Type)

	graph := &FlowGraph{
		TraceID: traceID,
		Manager: start.Manager,
		Object:  start.Object,
		Type:    start.Type,
		Path:    []FlowNode{},
	}

	// Directory lookups are memoized for the duration of this run only;
	// connection parameters may change between runs.
	dir := directory.NewMemo(t.Directory)

	pending := []Ref{start}
	enqueued := map[Ref]bool{start: true}
	visited := make(map[string]bool)

	for len(pending) > 0 {
		ref := pending[0]
		pending = pending[1:]
		// Dedup is by pending-queue membership, not history: a ref popped
		// and later rediscovered must re-enter so the loop check can record
		// it as a terminal marker.
		delete(enqueued, ref)

		if visited[ref.Manager] {
			t.Logger.Debug("loop detected", "trace_id", traceID, "manager", ref.Manager)
			observability.Trace().OnLoopDetected(ctx, ref.Manager)
			graph.Path = append(graph.Path, FlowNode{
				Manager: ref.Manager,
				Note:    fmt.Sprintf("Loop detected at %s, stopping trace", ref.Manager),
			})
			continue
		}
		visited[ref.Manager] = true

		hopStart := time.Now()
		observability.Trace().OnHopStart(ctx, ref.Manager, ref.Object)
		node, hops := t.hop(ctx, dir, ref)
		var hopErr error
		if node.Error != "" {
			hopErr = errors.New(node.Error)
		}
		observability.Trace().OnHopComplete(ctx, ref.Manager, ref.Object, time.Since(hopStart), hopErr)

		graph.Path = append(graph.Path, node)
		for _, h := range hops {
			if enqueued[h] {
				continue
			}
			enqueued[h] = true
			pending = append(pending, h)
		}
	}

	observability.Trace().OnTraceComplete(ctx, traceID, len(graph.Path), time.Since(started))
	t.Logger.Info("trace complete",
		"trace_id", traceID, "nodes", len(graph.Path), "errors", len(graph.Errors()), "duration", time.Since(started))
	return graph, nil
}

// hop processes one pending ref: resolve connection parameters, open a
// session, classify the object, and return the resulting node plus any
// follow-up hops. Failures are folded into the node's Error; hop itself
// never fails.
func (t *Tracer) hop(ctx context.Context, dir directory.Service, ref Ref) (FlowNode, []Ref) {
	node := FlowNode{Manager: ref.Manager, Object: ref.Object, Type: ref.Type}

	conn, err := dir.Lookup(ctx, ref.Manager)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			node.Error = fmt.Sprintf("No connection details found for %s", ref.Manager)
		} else {
			node.Error = fmt.Sprintf("Directory lookup for %s failed: %v", ref.Manager, err)
		}
		return node, nil
	}

	session, err := t.Querier.Connect(ctx, conn)
	if err != nil {
		t.Logger.Warn("connect failed", "manager", ref.Manager, "error", err)
		node.Error = fmt.Sprintf("Failed to connect to %s", ref.Manager)
		return node, nil
	}
	defer func() {
		if derr := session.Disconnect(); derr != nil {
			t.Logger.Warn("disconnect failed", "manager", ref.Manager, "error", derr)
		}
	}()

	switch ref.Type {
	case ObjectQueue:
		attrs, err := session.InquireQueue(ctx, ref.Object)
		if err != nil {
			if errors.Is(err, admin.ErrNotFound) {
				node.Error = fmt.Sprintf("Queue %s not found on %s", ref.Object, ref.Manager)
			} else {
				node.Error = err.Error()
			}
			return node, nil
		}
		detail, hops := t.resolveQueue(ctx, session, ref.Manager, attrs)
		node.Detail = detail
		return node, hops

	default: // ObjectTopic; Validate and ParseObjectType admit nothing else
		attrs, err := session.InquireTopic(ctx, ref.Object)
		if err != nil {
			if errors.Is(err, admin.ErrNotFound) {
				node.Error = fmt.Sprintf("Topic %s not found on %s", ref.Object, ref.Manager)
			} else {
				node.Error = err.Error()
			}
			return node, nil
		}
		detail, hops := t.resolveTopic(ctx, session, ref.Manager, ref.Object, attrs)
		node.Detail = detail
		return node, hops
	}
}
