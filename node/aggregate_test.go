package node

import (
	"context"
	"testing"
	"time"

	"github.com/dshills/flowgraph-go/graph"
	"github.com/dshills/flowgraph-go/packet"
)

func sumAggregate(payloads []any, _ []map[string]any) (any, error) {
	total := 0
	for _, p := range payloads {
		total += p.(int)
	}
	return total, nil
}

func TestAggregateCountWindowEmitsOnceReadyAndClears(t *testing.T) {
	cfg := graph.NodeConfig{
		ID:   "agg",
		Kind: graph.NodeKindAggregate,
		Aggregate: &graph.AggregateOptions{
			Window:     graph.WindowCount,
			WindowSize: 3,
			Strategy:   graph.EmitOnComplete,
			Fn:         sumAggregate,
		},
	}
	a := NewAggregateNode(cfg, graph.DefaultConfig(), nil, nil)
	out := make(chan packet.Packet, 4)
	a.Subscribe(func(p packet.Packet) { out <- p })

	ctx := context.Background()
	_ = a.Start(ctx)
	defer a.Stop()

	a.Process(ctx, packet.New(1, nil))
	a.Process(ctx, packet.New(2, nil))
	select {
	case <-out:
		t.Fatal("must not emit before the window is ready")
	case <-time.After(30 * time.Millisecond):
	}

	a.Process(ctx, packet.New(3, nil))
	select {
	case p := <-out:
		if p.Payload != 6 {
			t.Fatalf("payload = %v, want 6", p.Payload)
		}
		if p.Metadata["packetCount"] != 3 {
			t.Fatalf("packetCount = %v, want 3", p.Metadata["packetCount"])
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for window emission")
	}

	a.Process(ctx, packet.New(4, nil))
	select {
	case <-out:
		t.Fatal("window should have cleared after emitting")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestAggregateCountIncrementalEmitsEveryAdmission(t *testing.T) {
	cfg := graph.NodeConfig{
		ID:   "agg",
		Kind: graph.NodeKindAggregate,
		Aggregate: &graph.AggregateOptions{
			Window:     graph.WindowCount,
			WindowSize: 2,
			Strategy:   graph.EmitIncremental,
			Fn:         sumAggregate,
		},
	}
	a := NewAggregateNode(cfg, graph.DefaultConfig(), nil, nil)
	out := make(chan packet.Packet, 8)
	a.Subscribe(func(p packet.Packet) { out <- p })

	ctx := context.Background()
	_ = a.Start(ctx)
	defer a.Stop()

	a.Process(ctx, packet.New(1, nil))
	first := <-out
	if first.Payload != 1 {
		t.Fatalf("first incremental emission = %v, want 1", first.Payload)
	}

	a.Process(ctx, packet.New(2, nil))
	second := <-out
	if second.Payload != 3 {
		t.Fatalf("second emission (window clear point) = %v, want 3", second.Payload)
	}
}

func TestAggregateSlidingWindowKeepsLastN(t *testing.T) {
	cfg := graph.NodeConfig{
		ID:   "agg",
		Kind: graph.NodeKindAggregate,
		Aggregate: &graph.AggregateOptions{
			Window:     graph.WindowSliding,
			WindowSize: 2,
			Strategy:   graph.EmitOnComplete,
			Fn:         sumAggregate,
		},
	}
	a := NewAggregateNode(cfg, graph.DefaultConfig(), nil, nil)
	out := make(chan packet.Packet, 8)
	a.Subscribe(func(p packet.Packet) { out <- p })

	ctx := context.Background()
	_ = a.Start(ctx)
	defer a.Stop()

	a.Process(ctx, packet.New(1, nil))
	a.Process(ctx, packet.New(2, nil))
	if p := <-out; p.Payload != 3 {
		t.Fatalf("payload = %v, want 1+2=3", p.Payload)
	}
	a.Process(ctx, packet.New(3, nil))
	if p := <-out; p.Payload != 5 {
		t.Fatalf("payload = %v, want 2+3=5 (sliding window)", p.Payload)
	}
}

func TestAggregateSessionWindowEmitsOnlyOnExplicitClose(t *testing.T) {
	cfg := graph.NodeConfig{
		ID:   "agg",
		Kind: graph.NodeKindAggregate,
		Aggregate: &graph.AggregateOptions{
			Window:   graph.WindowSession,
			Strategy: graph.EmitOnComplete,
			Fn:       sumAggregate,
		},
	}
	a := NewAggregateNode(cfg, graph.DefaultConfig(), nil, nil)
	out := make(chan packet.Packet, 4)
	a.Subscribe(func(p packet.Packet) { out <- p })

	ctx := context.Background()
	_ = a.Start(ctx)
	defer a.Stop()

	a.Process(ctx, packet.New(1, nil))
	a.Process(ctx, packet.New(2, nil))
	select {
	case <-out:
		t.Fatal("session window must not emit before an explicit close")
	case <-time.After(30 * time.Millisecond):
	}

	a.CloseSession()
	select {
	case p := <-out:
		if p.Payload != 3 {
			t.Fatalf("payload = %v, want 3", p.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for session close emission")
	}
}

func TestAggregateTimeWindowClosesOnTimer(t *testing.T) {
	cfg := graph.NodeConfig{
		ID:   "agg",
		Kind: graph.NodeKindAggregate,
		Aggregate: &graph.AggregateOptions{
			Window:           graph.WindowTime,
			WindowDurationMs: 30,
			Strategy:         graph.EmitOnComplete,
			Fn:               sumAggregate,
		},
	}
	a := NewAggregateNode(cfg, graph.DefaultConfig(), nil, nil)
	out := make(chan packet.Packet, 4)
	a.Subscribe(func(p packet.Packet) { out <- p })

	ctx := context.Background()
	_ = a.Start(ctx)
	defer a.Stop()

	a.Process(ctx, packet.New(5, nil))
	select {
	case p := <-out:
		if p.Payload != 5 {
			t.Fatalf("payload = %v, want 5", p.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for time window to close")
	}
}

func TestAggregateSessionWindowBoundsAccumulationWithoutClose(t *testing.T) {
	cfg := graph.NodeConfig{
		ID:         "agg",
		Kind:       graph.NodeKindAggregate,
		BufferSize: 5,
		Aggregate: &graph.AggregateOptions{
			Window:   graph.WindowSession,
			Strategy: graph.EmitOnComplete,
			Fn:       sumAggregate,
		},
	}
	graphCfg := graph.DefaultConfig()
	graphCfg.BufferStrategy = graph.BufferSliding
	w := newWindow(cfg.ID, *cfg.Aggregate, cfg.EffectiveBufferSize(), graphCfg.BufferStrategy)

	for i := 1; i <= 8; i++ {
		if _, err := w.onAdmit(packet.New(i, nil)); err != nil {
			t.Fatalf("onAdmit: %v", err)
		}
	}

	w.mu.Lock()
	got := len(w.items)
	w.mu.Unlock()
	if got != 5 {
		t.Fatalf("accumulated items = %d, want capped at BufferSize 5", got)
	}

	p, ok, err := w.closeNow()
	if err != nil || !ok {
		t.Fatalf("closeNow: ok=%v err=%v", ok, err)
	}
	if p.Payload != 4+5+6+7+8 {
		t.Fatalf("payload = %v, want sum of last 5 admitted (4..8)=30", p.Payload)
	}
}
