package node

import (
	"context"
	"sync"
	"time"

	"github.com/dshills/flowgraph-go/driver"
	"github.com/dshills/flowgraph-go/graph"
	"github.com/dshills/flowgraph-go/packet"
)

const sourceReconnectDelay = 5 * time.Second

// SourceNode produces packets rather than consuming them: timer/manual are
// fully specified by the core, the remaining kinds delegate to a
// driver.SourceDriver skeleton.
type SourceNode struct {
	*BaseNode
	kind       graph.SourceKind
	intervalMs int64
	drv        driver.SourceDriver

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
}

// NewSourceNode builds a source node. drv is nil for timer/manual sources
// and required for websocket/http/database/driver kinds.
func NewSourceNode(cfg graph.NodeConfig, graphCfg graph.Config, prom *graph.PrometheusMetrics, gate *ConcurrencyGate, drv driver.SourceDriver) *SourceNode {
	opts := cfg.Source
	// A source's BaseNode never receives upstream packets; its admission
	// queue exists only so Process/Pause/Resume/Stop share BaseNode's FSM.
	process := func(_ context.Context, p packet.Packet) ([]packet.Packet, error) {
		return []packet.Packet{p}, nil
	}
	base := NewBaseNode(cfg.ID, graph.NodeKindSource, cfg.EffectiveBufferSize(), graphCfg.BufferStrategy, cfg.EffectiveTimeout(graphCfg.DefaultTimeout), cfg.Retry, prom, gate, process)
	return &SourceNode{BaseNode: base, kind: opts.Kind, intervalMs: opts.IntervalMs, drv: drv}
}

// Start arms the timer loop or the driver poll loop, in addition to the
// base FSM transition.
func (s *SourceNode) Start(parent context.Context) error {
	if err := s.BaseNode.Start(parent); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	switch s.kind {
	case graph.SourceTimer:
		s.startTimerLoop(ctx)
	case graph.SourceManual:
		// no-op: emission happens only via Inject.
	default:
		if s.drv != nil {
			go s.pollLoop(ctx)
		}
	}
	return nil
}

// Stop releases the timer/driver loop in addition to the base FSM
// transition; reconnect attempts are suppressed once stopped.
func (s *SourceNode) Stop() error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	if s.drv != nil {
		_ = s.drv.Close(context.Background())
	}
	return s.BaseNode.Stop()
}

// Inject synthesizes a packet from payload/metadata and emits it. Valid
// only while running; the manual-source-only restriction is enforced by
// the runner.
func (s *SourceNode) Inject(payload any, metadata map[string]any) {
	if State(s.state.Load()) != StateRunning {
		return
	}
	s.emitDerived(packet.New(payload, metadata))
}

func (s *SourceNode) startTimerLoop(ctx context.Context) {
	interval := time.Duration(s.intervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	s.mu.Lock()
	s.timer = time.AfterFunc(interval, func() { s.fireTimer(ctx, interval) })
	s.mu.Unlock()
}

func (s *SourceNode) fireTimer(ctx context.Context, interval time.Duration) {
	if ctx.Err() != nil {
		return
	}
	if State(s.state.Load()) == StateRunning {
		s.emitDerived(packet.New(time.Now().UnixMilli(), map[string]any{
			"nodeId":     s.id,
			"sourceKind": string(graph.SourceTimer),
		}))
	}
	s.mu.Lock()
	if s.timer != nil && ctx.Err() == nil {
		s.timer.Reset(interval)
	}
	s.mu.Unlock()
}

// pollLoop drains the driver until ctx is cancelled, reconnecting with a
// fixed 5s backoff on failure while the node remains running.
func (s *SourceNode) pollLoop(ctx context.Context) {
	if err := s.drv.Open(ctx); err != nil {
		s.fail(&graph.DriverError{NodeID: s.id, Op: "open", Cause: err})
		return
	}
	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := s.drv.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.hooksMu.RLock()
			h := s.hooks.OnNodeError
			s.hooksMu.RUnlock()
			if h != nil {
				h(&graph.DriverError{NodeID: s.id, Op: "poll", Cause: err})
			}
			select {
			case <-time.After(sourceReconnectDelay):
			case <-ctx.Done():
				return
			}
			if reopenErr := s.drv.Open(ctx); reopenErr != nil {
				continue
			}
			continue
		}
		if State(s.state.Load()) == StateRunning {
			s.emitDerived(packet.New(msg.Payload, msg.Metadata))
		}
	}
}
