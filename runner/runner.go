// Package runner assembles a graph.Definition into live nodes, wires edges
// between them, and drives the resulting graph's lifecycle.
package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/flowgraph-go/graph"
	"github.com/dshills/flowgraph-go/graph/emit"
	"github.com/dshills/flowgraph-go/node"
	"github.com/dshills/flowgraph-go/packet"
	"github.com/dshills/flowgraph-go/store"
)

// State is the graph-level lifecycle position (distinct from any single
// node's node.State).
type State int32

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// hopMetaKey is the packet metadata key the edge fabric uses to count how
// many edges a packet has crossed (checked against MaxIterations). It is
// deliberately a visible metadata key rather than hidden runner
// state, mirroring the way a timer source already stamps "nodeId" and
// "sourceKind" directly into a packet's metadata (node/source.go).
const hopMetaKey = "flowgraph:hops"

// Runner owns one graph.Definition's live nodes and edges. It is built with
// New and must be handed to Initialize before Start; each Runner is
// independent and holds no package-level state, so multiple graphs can run
// concurrently in the same process.
type Runner struct {
	def    *graph.Definition
	prom   *graph.PrometheusMetrics
	emitter emit.Emitter
	persist store.Store
	collab  node.Collaborators

	metricsTick        time.Duration
	checkpointInterval time.Duration

	initMu      sync.Mutex
	initialized bool
	nodes       map[string]node.Runtime

	lifecycleMu sync.Mutex
	state       atomic.Int32
	runCtx      context.Context
	runCancel   context.CancelFunc
	tickersWG   sync.WaitGroup
	tickersStop chan struct{}

	varsMu sync.RWMutex
	vars   map[string]any

	listenersMu sync.RWMutex
	listeners   map[EventKind]map[string]func(emit.Event)

	subsMu     sync.RWMutex
	subsByNode map[string][]*subscription
	subsByID   map[string]*subscription

	metricsMu    sync.RWMutex
	metricsCache RunnerMetrics

	eventStep atomic.Int64
}

// New constructs a Runner for def. The graph is not yet validated or built;
// call Initialize before Start.
func New(def *graph.Definition, opts ...Option) (*Runner, error) {
	if def == nil {
		return nil, &graph.ValidationError{Message: "runner: definition is nil"}
	}
	r := &Runner{
		def:                def,
		metricsTick:        5 * time.Second,
		checkpointInterval: def.Config.CheckpointInterval,
		nodes:              make(map[string]node.Runtime),
		vars:               make(map[string]any),
		listeners:          make(map[EventKind]map[string]func(emit.Event)),
		subsByNode:         make(map[string][]*subscription),
		subsByID:           make(map[string]*subscription),
	}
	r.state.Store(int32(StateIdle))
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.emitter == nil {
		r.emitter = emit.NewNullEmitter()
	}
	return r, nil
}

// Initialize validates def's structure, constructs every node, and wires
// edges and event hooks. It does not start anything and does not emit
// graph:started — that happens once, in Start. Calling Initialize more
// than once is a no-op.
func (r *Runner) Initialize(_ context.Context) error {
	r.initMu.Lock()
	defer r.initMu.Unlock()
	if r.initialized {
		return nil
	}

	if err := graph.Validate(r.def); err != nil {
		return err
	}

	gate := node.NewConcurrencyGate(r.def.Config.MaxConcurrency)

	built := make(map[string]node.Runtime, len(r.def.Nodes))
	for i := range r.def.Nodes {
		cfg := r.def.Nodes[i]
		rt, err := node.New(cfg, r.def.Config, r.prom, gate, r.collab)
		if err != nil {
			return &graph.ValidationError{Message: fmt.Sprintf("runner: build node %s", cfg.ID), Cause: err}
		}
		built[cfg.ID] = rt
	}

	for id, rt := range built {
		rt.SetHooks(r.hooksFor(id))
	}
	for id, rt := range built {
		rt.Subscribe(r.edgeDispatcher(id))
		rt.Subscribe(r.subscriptionDispatcher(id))
	}

	r.nodes = built
	r.initialized = true
	return nil
}

// hooksFor builds the node.Hooks closures that translate a single node's
// per-packet outcomes into graph-level events.
func (r *Runner) hooksFor(nodeID string) node.Hooks {
	return node.Hooks{
		OnDrop: func(p packet.Packet, reason string) {
			r.emitEvent(EventPacketDropped, nodeID, map[string]any{"packetId": p.ID, "reason": reason})
		},
		OnPacketError: func(p packet.Packet, err error) {
			r.emitEvent(EventPacketError, nodeID, map[string]any{"packetId": p.ID, "error": err.Error()})
		},
		OnNodeError: func(err error) {
			r.emitEvent(EventNodeError, nodeID, map[string]any{"error": err.Error()})
			r.handleNodeError(nodeID, err)
		},
		OnProcessed: func(in packet.Packet, outs []packet.Packet) {
			r.emitEvent(EventPacketProcessed, nodeID, map[string]any{"packetId": in.ID, "outCount": len(outs)})
		},
	}
}

// handleNodeError applies the graph's ErrorStrategy once a node transitions
// to its terminal error state.
func (r *Runner) handleNodeError(nodeID string, err error) {
	switch r.def.Config.ErrorStrategy {
	case graph.ErrorStop:
		r.emitEvent(EventGraphError, nodeID, map[string]any{"error": err.Error()})
		go func() { _ = r.Stop(context.Background()) }()
	case graph.ErrorRetry, graph.ErrorContinue:
		// continue: the node:error event above is the only reaction.
		// retry: already exhausted at the node level by the time a node
		// reaches StateError, so there is nothing further to do here.
	}
}

// GetState returns the graph's current lifecycle state.
func (r *Runner) GetState() State {
	return State(r.state.Load())
}

// SetVariable stores a graph-wide variable visible to edge predicates and
// mappers via RunnerContext.
func (r *Runner) SetVariable(key string, value any) {
	r.varsMu.Lock()
	r.vars[key] = value
	r.varsMu.Unlock()
}

// GetVariable reads a graph-wide variable.
func (r *Runner) GetVariable(key string) (any, bool) {
	return r.Variable(key)
}

// Variable implements graph.RunnerContext so the Runner itself can be
// passed as the rc argument to Edge.Apply.
func (r *Runner) Variable(key string) (any, bool) {
	r.varsMu.RLock()
	defer r.varsMu.RUnlock()
	v, ok := r.vars[key]
	return v, ok
}
