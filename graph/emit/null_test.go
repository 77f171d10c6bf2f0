package emit

import (
	"context"
	"testing"
)

func TestNullEmitter_NoOp(t *testing.T) {
	t.Run("emits events without error", func(t *testing.T) {
		emitter := NewNullEmitter()

		events := []Event{
			{RunID: "run-001", Step: 0, NodeID: "source", Msg: "graph:started"},
			{RunID: "run-001", Step: 1, NodeID: "double", Msg: "packet:processed"},
			{RunID: "run-001", Step: 2, NodeID: "double", Msg: "packet:error", Meta: map[string]interface{}{"error": "boom"}},
		}

		for _, event := range events {
			emitter.Emit(event)
		}
	})

	t.Run("emits with nil meta", func(t *testing.T) {
		emitter := NewNullEmitter()
		emitter.Emit(Event{RunID: "run-001", NodeID: "source", Msg: "graph:stopped", Meta: nil})
	})

	t.Run("EmitBatch discards and returns nil", func(t *testing.T) {
		emitter := NewNullEmitter()
		err := emitter.EmitBatch(context.Background(), []Event{
			{RunID: "run-001", Msg: "packet:processed"},
			{RunID: "run-001", Msg: "packet:dropped"},
		})
		if err != nil {
			t.Fatalf("EmitBatch returned error: %v", err)
		}
	})

	t.Run("Flush is a no-op", func(t *testing.T) {
		emitter := NewNullEmitter()
		if err := emitter.Flush(context.Background()); err != nil {
			t.Fatalf("Flush returned error: %v", err)
		}
	})
}

func TestNullEmitter_InterfaceContract(t *testing.T) {
	var _ Emitter = NewNullEmitter()
}
