package emit

import (
	"context"
	"testing"
)

func TestEmitter_InterfaceContract(t *testing.T) {
	var _ Emitter = (*mockEmitter)(nil)
}

// mockEmitter is a minimal Emitter implementation for testing the interface contract.
type mockEmitter struct {
	events []Event
}

func (m *mockEmitter) Emit(event Event) {
	m.events = append(m.events, event)
}

func (m *mockEmitter) EmitBatch(_ context.Context, events []Event) error {
	m.events = append(m.events, events...)
	return nil
}

func (m *mockEmitter) Flush(_ context.Context) error {
	return nil
}

func TestEmitter_Emit(t *testing.T) {
	t.Run("emit single event", func(t *testing.T) {
		emitter := &mockEmitter{}

		emitter.Emit(Event{RunID: "run-001", Step: 1, NodeID: "double", Msg: "packet:processed"})

		if len(emitter.events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(emitter.events))
		}
		if emitter.events[0].Msg != "packet:processed" {
			t.Errorf("expected Msg = 'packet:processed', got %q", emitter.events[0].Msg)
		}
	})

	t.Run("emit multiple events", func(t *testing.T) {
		emitter := &mockEmitter{}

		events := []Event{
			{RunID: "run-001", Step: 1, Msg: "packet:processed"},
			{RunID: "run-001", Step: 2, Msg: "packet:processed"},
			{RunID: "run-001", Step: 3, Msg: "packet:dropped"},
		}

		for _, event := range events {
			emitter.Emit(event)
		}

		if len(emitter.events) != 3 {
			t.Fatalf("expected 3 events, got %d", len(emitter.events))
		}

		for i, event := range emitter.events {
			if event.Step != i+1 {
				t.Errorf("event %d: expected Step = %d, got %d", i, i+1, event.Step)
			}
		}
	})

	t.Run("emit with metadata", func(t *testing.T) {
		emitter := &mockEmitter{}

		event := Event{
			RunID:  "run-001",
			Step:   1,
			NodeID: "double",
			Msg:    "packet:processed",
			Meta: map[string]interface{}{
				"packetId": "pkt-001",
				"outCount": 1,
			},
		}

		emitter.Emit(event)

		if len(emitter.events) != 1 {
			t.Fatal("expected 1 event")
		}

		meta := emitter.events[0].Meta
		if meta["packetId"] != "pkt-001" {
			t.Errorf("expected packetId = 'pkt-001', got %v", meta["packetId"])
		}
		if meta["outCount"] != 1 {
			t.Errorf("expected outCount = 1, got %v", meta["outCount"])
		}
	})

	t.Run("emit zero value event", func(t *testing.T) {
		emitter := &mockEmitter{}

		emitter.Emit(Event{})

		if len(emitter.events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(emitter.events))
		}
	})
}

func TestEmitter_EmitBatch(t *testing.T) {
	emitter := &mockEmitter{}

	err := emitter.EmitBatch(context.Background(), []Event{
		{RunID: "run-001", Step: 0, Msg: "graph:started"},
		{RunID: "run-001", Step: 1, Msg: "packet:processed"},
	})
	if err != nil {
		t.Fatalf("EmitBatch returned error: %v", err)
	}
	if len(emitter.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(emitter.events))
	}
}

func TestEmitter_Patterns(t *testing.T) {
	t.Run("buffering emitter", func(t *testing.T) {
		emitter := &mockEmitter{events: make([]Event, 0, 10)}

		for i := 1; i <= 5; i++ {
			emitter.Emit(Event{RunID: "run-001", Step: i, Msg: "packet:processed"})
		}

		if len(emitter.events) != 5 {
			t.Errorf("expected 5 buffered events, got %d", len(emitter.events))
		}
	})

	t.Run("filtering emitter", func(t *testing.T) {
		var kept []Event

		emit := func(event Event) {
			if event.Msg == "packet:error" {
				kept = append(kept, event)
			}
		}

		emit(Event{Msg: "packet:processed"})
		emit(Event{Msg: "packet:error", Meta: map[string]interface{}{"error": "boom"}})

		if len(kept) != 1 {
			t.Errorf("expected 1 packet:error event, got %d", len(kept))
		}
		if kept[0].Msg != "packet:error" {
			t.Errorf("expected 'packet:error', got %q", kept[0].Msg)
		}
	})
}
