// Package pkg provides the core libraries for flowtrace message flow tracing.
//
// # Overview
//
// Flowtrace resolves where a queue or topic actually delivers by following
// alias, remote, and subscription definitions hop by hop across queue
// managers. The pkg directory is organized into these areas:
//
//  1. [trace] - Traversal core (hop resolution, cycle detection, flow graphs)
//  2. [admin] - Administrative queries against queue managers
//  3. [directory] - Manager connection directory (static or Postgres)
//  4. [cache] - Trace result caching (file or Redis)
//  5. [render] - Flow graph output (text, DOT, SVG, PNG)
//  6. [audit] / [stats] - Batch jobs for queue usage and traffic metrics
//
// # Architecture
//
// The typical data flow through flowtrace:
//
//	Starting queue or topic
//	         ↓
//	    [directory] package (resolve manager connections)
//	         ↓
//	    [admin] package (inquire object definitions)
//	         ↓
//	    [trace] package (follow hops, detect loops)
//	         ↓
//	    [render] / [flowio] output
//
// The HTTP service in [api] and the CLI share the same [trace.Runner], so
// both serve from one cache.
package pkg
