package node

import (
	"context"
	"fmt"

	"github.com/dshills/flowgraph-go/driver"
	"github.com/dshills/flowgraph-go/graph"
	"github.com/dshills/flowgraph-go/graph/emit"
	"github.com/dshills/flowgraph-go/packet"
)

// Runtime is the common surface every concrete node kind exposes to a
// runner: lifecycle control, admission, subscription, and introspection.
type Runtime interface {
	ID() string
	Kind() graph.NodeKind
	State() State
	Start(parent context.Context) error
	Pause() error
	Resume() error
	Stop() error
	Process(ctx context.Context, p packet.Packet)
	Subscribe(s Subscriber)
	SetHooks(h Hooks)
	Metrics() graph.Snapshot
	BufferDepth() int
}

// Collaborators bundles the external drivers/emitters a graph's driver-
// backed node kinds need; the runner assembles these (often from
// NodeConfig's DriverParams) and hands them to New.
type Collaborators struct {
	SourceDrivers  map[string]driver.SourceDriver // keyed by node id
	HTTPSinks      map[string]driver.SinkDriver
	DatabaseSinks  map[string]driver.BatchSinkDriver
	WebsocketSinks map[string]driver.WebsocketDriver
	LogEmitter     emit.Emitter
}

// New builds the concrete node kind for cfg, wiring in graph-wide config
// (buffer strategy, default timeout, concurrency gate) and any required
// collaborators. gate is shared across every node New builds for the same
// graph so graph.Config.MaxConcurrency bounds process invocations
// runtime-wide rather than per node.
func New(cfg graph.NodeConfig, graphCfg graph.Config, prom *graph.PrometheusMetrics, gate *ConcurrencyGate, collab Collaborators) (Runtime, error) {
	switch cfg.Kind {
	case graph.NodeKindSource:
		return NewSourceNode(cfg, graphCfg, prom, gate, collab.SourceDrivers[cfg.ID]), nil

	case graph.NodeKindTransform:
		process := newTransformProcess(cfg.ID, cfg.Transform.Fn, cfg.Retry != nil)
		return NewBaseNode(cfg.ID, graph.NodeKindTransform, cfg.EffectiveBufferSize(), graphCfg.BufferStrategy, cfg.EffectiveTimeout(graphCfg.DefaultTimeout), cfg.Retry, prom, gate, process), nil

	case graph.NodeKindFilter:
		process := newFilterProcess(cfg.ID, cfg.Filter.Fn)
		return NewBaseNode(cfg.ID, graph.NodeKindFilter, cfg.EffectiveBufferSize(), graphCfg.BufferStrategy, cfg.EffectiveTimeout(graphCfg.DefaultTimeout), cfg.Retry, prom, gate, process), nil

	case graph.NodeKindAggregate:
		return NewAggregateNode(cfg, graphCfg, prom, gate), nil

	case graph.NodeKindSink:
		sinkCfg := SinkConfig{
			Kind:       cfg.Sink.Kind,
			Method:     cfg.Sink.Method,
			Fn:         cfg.Sink.Fn,
			LogEmitter: collab.LogEmitter,
			HTTPDriver: collab.HTTPSinks[cfg.ID],
			WSDriver:   collab.WebsocketSinks[cfg.ID],
			DBDriver:   collab.DatabaseSinks[cfg.ID],
		}
		process, cleanup := newSinkProcess(cfg.ID, sinkCfg)
		base := NewBaseNode(cfg.ID, graph.NodeKindSink, cfg.EffectiveBufferSize(), graphCfg.BufferStrategy, cfg.EffectiveTimeout(graphCfg.DefaultTimeout), cfg.Retry, prom, gate, process)
		if cleanup != nil {
			base.SetFlush(func(_ context.Context) []packet.Packet {
				cleanup()
				return nil
			})
		}
		return base, nil

	default:
		return nil, fmt.Errorf("node: unknown kind %q for node %s", cfg.Kind, cfg.ID)
	}
}
