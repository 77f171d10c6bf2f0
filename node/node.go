package node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/flowgraph-go/graph"
	"github.com/dshills/flowgraph-go/packet"
)

// State is a node's lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCompleted
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ConcurrencyGate bounds how many ProcessFunc invocations may run at once
// across every node that shares it — typically every node in one graph,
// sized from graph.Config.MaxConcurrency. A nil *ConcurrencyGate imposes no
// bound.
type ConcurrencyGate struct {
	sem chan struct{}
}

// NewConcurrencyGate returns a gate admitting up to n concurrent holders,
// or nil (unbounded) when n is zero or negative.
func NewConcurrencyGate(n int) *ConcurrencyGate {
	if n <= 0 {
		return nil
	}
	return &ConcurrencyGate{sem: make(chan struct{}, n)}
}

func (g *ConcurrencyGate) acquire(ctx context.Context) {
	if g == nil {
		return
	}
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
	}
}

func (g *ConcurrencyGate) release() {
	if g == nil {
		return
	}
	select {
	case <-g.sem:
	default:
	}
}

// Subscriber receives every packet a node emits downstream. Subscribers are
// invoked synchronously, in registration order, on the goroutine that emits
// the packet: the node's processing goroutine for processed packets, or the
// caller of Inject/Pause/Stop or a timer/poll goroutine for packets a node
// originates or flushes. A panic in a subscriber is recovered; the
// subscriber stays registered.
type Subscriber func(packet.Packet)

// Hooks lets a runner observe per-packet outcomes a BaseNode doesn't itself
// have enough context to report as graph-level events.
type Hooks struct {
	OnDrop        func(p packet.Packet, reason string)
	OnPacketError func(p packet.Packet, err error)
	OnNodeError   func(err error)
	OnProcessed   func(in packet.Packet, outs []packet.Packet)
}

// ProcessFunc performs the node-kind-specific work for one dequeued packet,
// returning zero or more packets to emit downstream. Concrete node kinds
// (source/transform/filter/aggregate/sink) each supply one, closing over
// their user-supplied TransformFunc/FilterFunc/AggregateFunc/SinkFunc.
type ProcessFunc func(ctx context.Context, p packet.Packet) ([]packet.Packet, error)

// BaseNode implements the lifecycle FSM, admission/buffering, retry
// scheduling, metrics, and fan-out emission shared by every node kind
// shared by every node kind. Concrete kinds embed it and supply a ProcessFunc.
type BaseNode struct {
	id      string
	kind    graph.NodeKind
	queue   *admissionQueue
	process ProcessFunc
	retry   *graph.RetryPolicy
	timeout time.Duration

	metrics graph.NodeMetrics
	prom    *graph.PrometheusMetrics
	gate    *ConcurrencyGate

	state atomic.Int32

	hooksMu sync.RWMutex
	hooks   Hooks

	subMu sync.RWMutex
	subs  []Subscriber

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	resumeMu sync.Mutex
	resumeCh chan struct{}

	// flush, if set, is invoked by Pause/Stop: aggregate nodes emit their
	// partial window through it, and database/websocket sinks run their
	// cleanup through it.
	flush func(ctx context.Context) []packet.Packet
}

// NewBaseNode builds a BaseNode from a resolved NodeConfig (buffer size,
// timeout, and retry policy already defaulted by the caller) and the
// kind-specific processing function. gate may be nil for no concurrency
// bound.
func NewBaseNode(id string, kind graph.NodeKind, bufferSize int, strategy graph.BufferStrategy, timeout time.Duration, retry *graph.RetryPolicy, prom *graph.PrometheusMetrics, gate *ConcurrencyGate, process ProcessFunc) *BaseNode {
	n := &BaseNode{
		id:      id,
		kind:    kind,
		queue:   newAdmissionQueue(bufferSize, strategy),
		process: process,
		retry:   retry,
		timeout: timeout,
		prom:    prom,
		gate:    gate,
	}
	n.state.Store(int32(StateIdle))
	return n
}

func (n *BaseNode) ID() string          { return n.id }
func (n *BaseNode) Kind() graph.NodeKind { return n.kind }
func (n *BaseNode) State() State        { return State(n.state.Load()) }
func (n *BaseNode) Metrics() graph.Snapshot { return n.metrics.Snapshot() }
func (n *BaseNode) BufferDepth() int    { return n.queue.depth() }

// SetHooks installs the runner's observation callbacks. Must be called
// before Start.
func (n *BaseNode) SetHooks(h Hooks) {
	n.hooksMu.Lock()
	n.hooks = h
	n.hooksMu.Unlock()
}

// SetFlush installs a callback invoked on Pause and Stop to drain any
// partial accumulated state: aggregate nodes use it for their window, and
// the factory uses it for the database and websocket sinks' cleanup.
func (n *BaseNode) SetFlush(f func(ctx context.Context) []packet.Packet) {
	n.flush = f
}

// Subscribe registers a downstream receiver for every packet this node emits.
func (n *BaseNode) Subscribe(s Subscriber) {
	n.subMu.Lock()
	n.subs = append(n.subs, s)
	n.subMu.Unlock()
}

// Start transitions idle->running (spawning the node's processing
// goroutine) and is a no-op when already running. Starting a completed or
// errored node is rejected.
func (n *BaseNode) Start(parent context.Context) error {
	n.lifecycleMu.Lock()
	defer n.lifecycleMu.Unlock()

	cur := State(n.state.Load())
	if cur == StateRunning {
		return nil
	}
	if cur == StateCompleted || cur == StateError {
		return &graph.InvalidTargetError{Operation: "start", NodeID: n.id, Reason: "node is " + cur.String()}
	}

	ctx, cancel := context.WithCancel(parent)
	n.cancel = cancel
	n.state.Store(int32(StateRunning))

	n.wg.Add(2)
	go func() {
		defer n.wg.Done()
		<-ctx.Done()
		n.queue.close()
	}()
	go n.loop(ctx)
	return nil
}

// Pause transitions running->paused: admission is rejected and the
// processing loop idles without draining the buffer. A no-op on any other
// state.
func (n *BaseNode) Pause() error {
	if !n.state.CompareAndSwap(int32(StateRunning), int32(StatePaused)) {
		return nil
	}
	n.runFlush()
	return nil
}

// Resume transitions paused->running and wakes the processing loop. A
// no-op on any other state.
func (n *BaseNode) Resume() error {
	if !n.state.CompareAndSwap(int32(StatePaused), int32(StateRunning)) {
		return nil
	}
	n.broadcastResume()
	return nil
}

// Stop transitions any state to completed, cancels in-flight work at its
// next safe point, and waits for the processing goroutine to exit. Calling
// Stop more than once is a no-op.
func (n *BaseNode) Stop() error {
	n.lifecycleMu.Lock()
	defer n.lifecycleMu.Unlock()

	prev := State(n.state.Swap(int32(StateCompleted)))
	if prev == StateCompleted {
		return nil
	}
	n.runFlush()
	n.broadcastResume()
	if n.cancel != nil {
		n.cancel()
	}
	n.wg.Wait()
	return nil
}

func (n *BaseNode) runFlush() {
	if n.flush == nil {
		return
	}
	for _, p := range n.flush(context.Background()) {
		n.emit(p)
	}
}

func (n *BaseNode) fail(err error) {
	n.state.Store(int32(StateError))
	n.lifecycleMu.Lock()
	if n.cancel != nil {
		n.cancel()
	}
	n.lifecycleMu.Unlock()
	n.hooksMu.RLock()
	h := n.hooks.OnNodeError
	n.hooksMu.RUnlock()
	if h != nil {
		h(err)
	}
}

func (n *BaseNode) resumeSignal() <-chan struct{} {
	n.resumeMu.Lock()
	defer n.resumeMu.Unlock()
	if n.resumeCh == nil {
		n.resumeCh = make(chan struct{})
	}
	return n.resumeCh
}

func (n *BaseNode) broadcastResume() {
	n.resumeMu.Lock()
	if n.resumeCh != nil {
		close(n.resumeCh)
		n.resumeCh = nil
	}
	n.resumeMu.Unlock()
}

// Process admits a packet for processing. Admission is non-blocking except
// under BufferBlock, where it waits (honoring ctx) for buffer space.
func (n *BaseNode) Process(ctx context.Context, p packet.Packet) {
	if State(n.state.Load()) != StateRunning {
		n.drop(p, "not running")
		return
	}
	n.metrics.RecordIn()
	if n.prom != nil {
		n.prom.IncPacketsIn(n.id)
	}

	if n.queue.strategy == graph.BufferBlock {
		if err := n.queue.blockingPush(ctx, p); err != nil {
			n.hooksMu.RLock()
			h := n.hooks.OnPacketError
			n.hooksMu.RUnlock()
			if h != nil {
				h(p, &graph.BufferOverflowError{NodeID: n.id})
			}
		}
		if n.prom != nil {
			n.prom.SetBufferDepth(n.id, n.queue.depth())
		}
		return
	}

	if !n.queue.tryPush(p) {
		n.drop(p, "buffer full")
		return
	}
	if n.prom != nil {
		n.prom.SetBufferDepth(n.id, n.queue.depth())
	}
}

func (n *BaseNode) drop(p packet.Packet, reason string) {
	n.metrics.RecordDropped()
	if n.prom != nil {
		n.prom.IncDropped(n.id, reason)
	}
	n.hooksMu.RLock()
	h := n.hooks.OnDrop
	n.hooksMu.RUnlock()
	if h != nil {
		h(p, reason)
	}
}

func (n *BaseNode) loop(ctx context.Context) {
	defer n.wg.Done()
	for {
		if State(n.state.Load()) == StatePaused {
			select {
			case <-n.resumeSignal():
			case <-ctx.Done():
				return
			}
			continue
		}
		p, ok := n.queue.pop(ctx)
		if !ok {
			return
		}
		if n.prom != nil {
			n.prom.SetBufferDepth(n.id, n.queue.depth())
		}
		n.handle(ctx, p, 0)
	}
}

// handle runs one processing attempt, scheduling a delayed retry on
// failure or surfacing a terminal error and transitioning the node when
// retries are exhausted (or none are configured). packetsErrored counts
// every failed attempt, including ones later retried successfully.
func (n *BaseNode) handle(ctx context.Context, p packet.Packet, retryCount int) {
	pctx := ctx
	var cancel context.CancelFunc
	if n.timeout > 0 {
		pctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	n.gate.acquire(pctx)
	start := time.Now()
	outs, err := n.safeProcess(pctx, p)
	elapsed := time.Since(start)
	n.gate.release()
	n.metrics.RecordLatency(elapsed)
	if n.prom != nil {
		n.prom.ObserveLatency(n.id, elapsed)
	}

	if err != nil {
		if errors.Is(err, errFiltered) {
			n.drop(p, "filtered")
			return
		}
		if pctx.Err() == context.DeadlineExceeded {
			err = &graph.TimeoutError{NodeID: n.id, PacketID: p.ID}
		}
		n.metrics.RecordErrored()
		if n.prom != nil {
			n.prom.IncErrored(n.id)
		}

		if n.retry.AllowsRetry(retryCount) {
			if n.prom != nil {
				n.prom.IncRetries(n.id)
			}
			delay := n.retry.Delay(retryCount)
			n.wg.Add(1)
			go func() {
				defer n.wg.Done()
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-timer.C:
					n.handle(ctx, p, retryCount+1)
				case <-ctx.Done():
				}
			}()
			return
		}

		n.hooksMu.RLock()
		h := n.hooks.OnPacketError
		n.hooksMu.RUnlock()
		if h != nil {
			h(p, err)
		}
		n.fail(err)
		return
	}

	if len(outs) > 0 {
		n.metrics.RecordOut(int64(len(outs)))
		if n.prom != nil {
			n.prom.IncPacketsOut(n.id, int64(len(outs)))
		}
		for _, o := range outs {
			n.emit(o)
		}
	}

	n.hooksMu.RLock()
	onProcessed := n.hooks.OnProcessed
	n.hooksMu.RUnlock()
	if onProcessed != nil {
		onProcessed(p, outs)
	}
}

func (n *BaseNode) safeProcess(ctx context.Context, p packet.Packet) (outs []packet.Packet, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in node %s: %v", n.id, r)
		}
	}()
	return n.process(ctx, p)
}

// emitDerived records metrics and fans out a packet produced outside the
// normal ProcessFunc path (an aggregate window's timer/session close, or a
// source's injected, timer or polled packet).
func (n *BaseNode) emitDerived(p packet.Packet) {
	n.metrics.RecordOut(1)
	if n.prom != nil {
		n.prom.IncPacketsOut(n.id, 1)
	}
	n.emit(p)
}

func (n *BaseNode) emit(p packet.Packet) {
	n.subMu.RLock()
	subs := make([]Subscriber, len(n.subs))
	copy(subs, n.subs)
	n.subMu.RUnlock()
	for _, s := range subs {
		n.safeNotify(s, p)
	}
}

func (n *BaseNode) safeNotify(s Subscriber, p packet.Packet) {
	defer func() { _ = recover() }()
	s(p)
}
