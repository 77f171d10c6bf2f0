// Package emit provides event emission and observability for graph execution.
package emit

import "context"

// Emitter receives graph-level and node-level events as a dataflow graph
// runs: lifecycle transitions (graph:started, graph:stopped), per-node
// outcomes (node:error), and per-packet outcomes (packet:processed,
// packet:dropped, packet:error).
//
// Emitters enable pluggable observability backends:
// - Logging: stdout, files, syslog.
// - Distributed tracing: OpenTelemetry.
// - Metrics/analytics backends fed from the same event stream.
//
// Implementations should be non-blocking (a slow backend must not stall a
// node's packet loop), safe for concurrent use (every node's goroutine may
// emit at once), and resilient to their own backend failing.
//
// Common patterns: buffering and flushing in batches, filtering to a
// subset of event kinds, fanning a single event out to multiple backends.
type Emitter interface {
	// Emit sends one event to the configured backend. It must not block
	// or panic; a backend that is unavailable or slow should buffer,
	// drop-and-log, or send asynchronously rather than stall the caller.
	Emit(event Event)

	// EmitBatch sends multiple events in one operation, preserving the
	// order they were produced in (a graph's packet:processed events must
	// stay ordered relative to each other for per-node FIFO to be
	// observable downstream). Returns an error only for catastrophic,
	// backend-wide failures; individual event failures should be logged
	// and swallowed rather than returned.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until every buffered event has been sent to the
	// backend (or a deadline from ctx elapses). Call it before process
	// shutdown and at the end of a graph run so no terminal events are
	// lost. Safe to call more than once.
	Flush(ctx context.Context) error
}
