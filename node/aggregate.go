package node

import (
	"context"
	"sync"
	"time"

	"github.com/dshills/flowgraph-go/graph"
	"github.com/dshills/flowgraph-go/packet"
)

// window holds one aggregate node's accumulated packets and the bookkeeping
// needed to decide readiness per window kind.
type window struct {
	nodeID   string
	kind     graph.WindowKind
	size     int
	duration time.Duration
	strategy graph.EmissionStrategy
	fn       graph.AggregateFunc

	// maxItems bounds total accumulated packets regardless of window kind.
	// WindowCount and WindowSliding are self-limiting via size, but
	// WindowTime and WindowSession only close on a timer or an explicit
	// CloseSession call, so without a separate cap a slow/absent closer
	// lets items grow without bound. dropStrategy picks how maxItems is
	// enforced, mirroring the node's own admission BufferStrategy.
	maxItems     int
	dropStrategy graph.BufferStrategy

	mu          sync.Mutex
	items       []packet.Packet
	windowStart int64

	onClose func([]packet.Packet) // fired by the timer goroutine / CloseSession
	timer   *time.Timer
}

func newWindow(nodeID string, opts graph.AggregateOptions, maxItems int, dropStrategy graph.BufferStrategy) *window {
	return &window{
		nodeID:       nodeID,
		kind:         opts.Window,
		size:         opts.WindowSize,
		duration:     time.Duration(opts.WindowDurationMs) * time.Millisecond,
		strategy:     opts.Strategy,
		fn:           opts.Fn,
		maxItems:     maxItems,
		dropStrategy: dropStrategy,
		windowStart:  time.Now().UnixMilli(),
	}
}

// onAdmit appends p and returns whatever the node should emit immediately:
// a partial under EmitIncremental, and/or a final under EmitOnComplete once
// the window's admission-triggered readiness condition (count/sliding) is
// met. Time and session windows never become ready here; they close via
// the background timer or CloseSession instead.
func (w *window) onAdmit(p packet.Packet) ([]packet.Packet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.items = append(w.items, p)
	if w.kind == graph.WindowSliding && w.size > 0 && len(w.items) > w.size {
		w.items = w.items[len(w.items)-w.size:]
	}
	if w.maxItems > 0 && len(w.items) > w.maxItems {
		if w.dropStrategy == graph.BufferSliding {
			w.items = w.items[len(w.items)-w.maxItems:]
		} else {
			// BufferDropNewest and BufferBlock both truncate here: onAdmit
			// runs synchronously inside the node's single worker, so there
			// is no caller left to block against once the packet has
			// already been admitted into the window.
			w.items = w.items[:w.maxItems]
		}
	}

	var out []packet.Packet
	if w.strategy == graph.EmitIncremental {
		o, err := w.buildLocked()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}

	readyOnAdmit := (w.kind == graph.WindowCount || w.kind == graph.WindowSliding) &&
		w.size > 0 && len(w.items) >= w.size

	if readyOnAdmit {
		if w.strategy == graph.EmitOnComplete {
			o, err := w.buildLocked()
			if err != nil {
				return nil, err
			}
			out = append(out, o)
		}
		if w.kind == graph.WindowCount {
			w.clearLocked()
		}
	}
	return out, nil
}

// closeNow unconditionally builds and clears the window if non-empty,
// regardless of emission strategy; used by the time-window timer, explicit
// session close, and the pause/stop flush paths.
func (w *window) closeNow() (packet.Packet, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.items) == 0 {
		return packet.Packet{}, false, nil
	}
	o, err := w.buildLocked()
	if err != nil {
		return packet.Packet{}, false, err
	}
	w.clearLocked()
	return o, true, nil
}

func (w *window) buildLocked() (packet.Packet, error) {
	payloads := make([]any, len(w.items))
	metas := make([]map[string]any, len(w.items))
	for i, it := range w.items {
		payloads[i] = it.Payload
		metas[i] = it.Metadata
	}
	payload, err := w.fn(payloads, metas)
	if err != nil {
		return packet.Packet{}, &graph.UserCodeError{NodeID: w.nodeID, Stage: "aggregate", Cause: err}
	}
	now := time.Now().UnixMilli()
	meta := map[string]any{
		"nodeId":      w.nodeID,
		"nodeKind":    "aggregate",
		"windowKind":  string(w.kind),
		"windowSize":  w.size,
		"packetCount": len(w.items),
		"windowStart": w.windowStart,
		"windowEnd":   now,
	}
	return packet.Derive(payload, meta), nil
}

func (w *window) clearLocked() {
	w.items = nil
	w.windowStart = time.Now().UnixMilli()
}

// startTimer launches the time-window's scheduled closer; it re-arms
// itself after every fire and stops when ctx is cancelled.
func (w *window) startTimer(ctx context.Context) {
	if w.kind != graph.WindowTime || w.duration <= 0 {
		return
	}
	w.timer = time.AfterFunc(w.duration, func() { w.fireTimer(ctx) })
}

func (w *window) fireTimer(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if o, ok, err := w.closeNow(); err == nil && ok && w.onClose != nil {
		w.onClose([]packet.Packet{o})
	}
	if ctx.Err() == nil {
		w.timer.Reset(w.duration)
	}
}

func (w *window) stopTimer() {
	if w.timer != nil {
		w.timer.Stop()
	}
}

// flush drains the window unconditionally (stop) or only under
// EmitIncremental (pause): on pause an incremental node flushes partial
// results; on stop every node flushes remaining contents.
func (w *window) flush(onlyIncremental bool) []packet.Packet {
	if onlyIncremental && w.strategy != graph.EmitIncremental {
		return nil
	}
	if o, ok, err := w.closeNow(); err == nil && ok {
		return []packet.Packet{o}
	}
	return nil
}

// AggregateNode implements the windowed aggregation engine on
// top of BaseNode: the node's admission queue/buffer strategy governs
// backpressure while a window is not yet ready, and the window itself
// decides when and what to emit. The window also reuses the node's own
// buffer size and strategy as a cap on accumulated items, so a time or
// session window with no timer/CloseSession activity can't grow without
// bound.
type AggregateNode struct {
	*BaseNode
	win *window
}

// NewAggregateNode builds an aggregate node from its resolved NodeConfig.
// When the node didn't request a strategy explicitly, the window waits for
// completion (onComplete), or defaults to incremental emission when
// graphCfg.StreamingMode is true.
func NewAggregateNode(cfg graph.NodeConfig, graphCfg graph.Config, prom *graph.PrometheusMetrics, gate *ConcurrencyGate) *AggregateNode {
	opts := *cfg.Aggregate
	if opts.Strategy == "" {
		if graphCfg.StreamingMode {
			opts.Strategy = graph.EmitIncremental
		} else {
			opts.Strategy = graph.EmitOnComplete
		}
	}
	w := newWindow(cfg.ID, opts, cfg.EffectiveBufferSize(), graphCfg.BufferStrategy)

	process := func(_ context.Context, p packet.Packet) ([]packet.Packet, error) {
		return w.onAdmit(p)
	}

	base := NewBaseNode(cfg.ID, graph.NodeKindAggregate, cfg.EffectiveBufferSize(), graphCfg.BufferStrategy, cfg.EffectiveTimeout(graphCfg.DefaultTimeout), cfg.Retry, prom, gate, process)
	a := &AggregateNode{BaseNode: base, win: w}

	w.onClose = func(pkts []packet.Packet) {
		for _, p := range pkts {
			a.emitDerived(p)
		}
	}
	base.SetFlush(func(_ context.Context) []packet.Packet {
		return w.flush(State(a.state.Load()) == StatePaused)
	})
	return a
}

// Start additionally arms the time window's scheduled closer.
func (a *AggregateNode) Start(parent context.Context) error {
	if err := a.BaseNode.Start(parent); err != nil {
		return err
	}
	a.win.startTimer(parent)
	return nil
}

// Stop additionally tears down the time window's timer.
func (a *AggregateNode) Stop() error {
	a.win.stopTimer()
	return a.BaseNode.Stop()
}

// CloseSession closes a session window explicitly; a no-op for any other
// window kind.
func (a *AggregateNode) CloseSession() {
	if a.win.kind != graph.WindowSession {
		return
	}
	if o, ok, err := a.win.closeNow(); err == nil && ok {
		a.emitDerived(o)
	}
}
