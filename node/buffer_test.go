package node

import (
	"context"
	"testing"
	"time"

	"github.com/dshills/flowgraph-go/graph"
	"github.com/dshills/flowgraph-go/packet"
)

func TestAdmissionQueueDropNewestWhenFull(t *testing.T) {
	q := newAdmissionQueue(2, graph.BufferDropNewest)
	if !q.tryPush(packet.New(1, nil)) {
		t.Fatal("first push should succeed")
	}
	if !q.tryPush(packet.New(2, nil)) {
		t.Fatal("second push should succeed")
	}
	if q.tryPush(packet.New(3, nil)) {
		t.Fatal("third push should be dropped at capacity")
	}
	if q.depth() != 2 {
		t.Fatalf("depth = %d, want 2", q.depth())
	}
}

func TestAdmissionQueueSlidingEvictsOldest(t *testing.T) {
	q := newAdmissionQueue(2, graph.BufferSliding)
	q.tryPush(packet.New(1, nil))
	q.tryPush(packet.New(2, nil))
	if !q.tryPush(packet.New(3, nil)) {
		t.Fatal("sliding push must always accept")
	}
	ctx := context.Background()
	first, ok := q.pop(ctx)
	if !ok || first.Payload != 2 {
		t.Fatalf("expected oldest survivor payload 2, got %v ok=%v", first.Payload, ok)
	}
}

func TestAdmissionQueueBlockingPushWaitsForSpace(t *testing.T) {
	q := newAdmissionQueue(1, graph.BufferBlock)
	q.tryPush(packet.New(1, nil))

	done := make(chan error, 1)
	go func() {
		done <- q.blockingPush(context.Background(), packet.New(2, nil))
	}()

	select {
	case <-done:
		t.Fatal("blockingPush returned before space was freed")
	case <-time.After(20 * time.Millisecond):
	}

	if _, ok := q.pop(context.Background()); !ok {
		t.Fatal("expected to pop the first item")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blockingPush never unblocked after space freed")
	}
}

func TestAdmissionQueueBlockingPushRespectsCancellation(t *testing.T) {
	q := newAdmissionQueue(1, graph.BufferBlock)
	q.tryPush(packet.New(1, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.blockingPush(ctx, packet.New(2, nil)) }()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected context cancellation error")
		}
	case <-time.After(time.Second):
		t.Fatal("blockingPush did not observe cancellation")
	}
}

func TestAdmissionQueueCloseWakesPop(t *testing.T) {
	q := newAdmissionQueue(4, graph.BufferDropNewest)
	done := make(chan bool, 1)
	go func() {
		_, ok := q.pop(context.Background())
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	q.close()
	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected pop to report closed (ok=false)")
		}
	case <-time.After(time.Second):
		t.Fatal("pop never woke on close")
	}
}
