package node

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/flowgraph-go/graph"
	"github.com/dshills/flowgraph-go/packet"
)

func TestTransformProcessAugmentsMetadataOnSuccess(t *testing.T) {
	fn := func(payload any, _ map[string]any) (any, error) { return payload.(int) * 2, nil }
	proc := newTransformProcess("double", fn, false)

	outs, err := proc(context.Background(), packet.New(21, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outs) != 1 || outs[0].Payload != 42 {
		t.Fatalf("unexpected outputs: %+v", outs)
	}
	if outs[0].Metadata["transformedBy"] != "double" {
		t.Fatalf("expected transformedBy metadata, got %+v", outs[0].Metadata)
	}
	if _, ok := outs[0].Metadata["transformedAt"]; !ok {
		t.Fatal("expected transformedAt metadata")
	}
}

func TestTransformProcessForwardsOriginalOnErrorWithoutRetry(t *testing.T) {
	fn := func(_ any, _ map[string]any) (any, error) { return nil, errors.New("boom") }
	proc := newTransformProcess("t", fn, false)

	in := packet.New(7, nil)
	outs, err := proc(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error (should be absorbed into the packet): %v", err)
	}
	if len(outs) != 1 {
		t.Fatalf("expected the original packet to pass through, got %d outputs", len(outs))
	}
	out := outs[0]
	if out.ID != in.ID || out.Payload != 7 {
		t.Fatal("expected the original packet (same id/payload) to be forwarded")
	}
	if !out.Failed() {
		t.Fatal("expected the forwarded packet to carry an error")
	}
	if out.Metadata["errorNode"] != "t" {
		t.Fatalf("expected errorNode metadata, got %+v", out.Metadata)
	}
}

func TestTransformProcessDefersToRetryPathWhenConfigured(t *testing.T) {
	fn := func(_ any, _ map[string]any) (any, error) { return nil, errors.New("boom") }
	proc := newTransformProcess("t", fn, true)

	_, err := proc(context.Background(), packet.New(7, nil))
	var uce *graph.UserCodeError
	if !errors.As(err, &uce) {
		t.Fatalf("expected *graph.UserCodeError when a retry policy is configured, got %T: %v", err, err)
	}
}

func TestFilterProcessPassesTruthyAndDropsFalsy(t *testing.T) {
	keep := newFilterProcess("f", func(payload any, _ map[string]any) (bool, error) { return payload.(int) > 0, nil })

	outs, err := keep(context.Background(), packet.New(1, nil))
	if err != nil || len(outs) != 1 {
		t.Fatalf("expected the packet to pass through, got outs=%v err=%v", outs, err)
	}

	outs, err = keep(context.Background(), packet.New(-1, nil))
	if len(outs) != 0 || !errors.Is(err, errFiltered) {
		t.Fatalf("expected a filtered drop, got outs=%v err=%v", outs, err)
	}
}

func TestFilterProcessTreatsThrownErrorsAsDrop(t *testing.T) {
	fn := newFilterProcess("f", func(_ any, _ map[string]any) (bool, error) { return false, errors.New("bad predicate") })
	outs, err := fn(context.Background(), packet.New(1, nil))
	if len(outs) != 0 || !errors.Is(err, errFiltered) {
		t.Fatalf("expected a filtered drop for a thrown error, got outs=%v err=%v", outs, err)
	}
}
