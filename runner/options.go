package runner

import (
	"time"

	"github.com/dshills/flowgraph-go/graph"
	"github.com/dshills/flowgraph-go/graph/emit"
	"github.com/dshills/flowgraph-go/node"
	"github.com/dshills/flowgraph-go/store"
)

// Option configures a Runner at construction time using the functional-
// options pattern: chainable, self-documenting, and each one optional.
//
// Example:
//
//	r, err := runner.New(def,
//	    runner.WithStore(store.NewMemoryStore()),
//	    runner.WithEmitter(emit.NewLogEmitter(os.Stdout, true)),
//	    runner.WithPrometheusMetrics(graph.NewPrometheusMetrics(nil)),
//	)
type Option func(*Runner) error

// WithStore installs the persistence adapter used by SaveDefinition,
// SaveState, SaveCheckpoint, and the background checkpoint tick.
func WithStore(s store.Store) Option {
	return func(r *Runner) error {
		r.persist = s
		return nil
	}
}

// WithEmitter installs the ambient observability sink (log/otel/buffered/
// null) every graph-level event is also forwarded to, independent of any
// listeners registered via On.
func WithEmitter(e emit.Emitter) Option {
	return func(r *Runner) error {
		r.emitter = e
		return nil
	}
}

// WithPrometheusMetrics installs the shared Prometheus collector every
// node reports packet counts, drops, errors, latency, retries, and buffer
// depth to.
func WithPrometheusMetrics(pm *graph.PrometheusMetrics) Option {
	return func(r *Runner) error {
		r.prom = pm
		return nil
	}
}

// WithCollaborators installs the driver-backed collaborators
// (source drivers, HTTP/database/websocket sinks, log emitter) that
// driver-backed node kinds require.
func WithCollaborators(c node.Collaborators) Option {
	return func(r *Runner) error {
		r.collab = c
		return nil
	}
}

// WithMetricsTick overrides the default 5s background interval at which
// GetMetrics' cached aggregate is refreshed.
func WithMetricsTick(d time.Duration) Option {
	return func(r *Runner) error {
		if d > 0 {
			r.metricsTick = d
		}
		return nil
	}
}

// WithCheckpointInterval overrides the graph's own Config.CheckpointInterval
// for the background checkpoint tick (only active when
// Config.EnableCheckpointing is true and a Store is configured).
func WithCheckpointInterval(d time.Duration) Option {
	return func(r *Runner) error {
		if d > 0 {
			r.checkpointInterval = d
		}
		return nil
	}
}
