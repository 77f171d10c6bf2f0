package emit

import (
	"testing"
)

func TestEvent_Struct(t *testing.T) {
	t.Run("complete event with all fields", func(t *testing.T) {
		event := Event{
			RunID:  "run-001",
			Step:   3,
			NodeID: "double",
			Msg:    "packet:processed",
			Meta: map[string]interface{}{
				"packetId": "pkt-003",
				"outCount": 1,
			},
		}

		if event.RunID != "run-001" {
			t.Errorf("expected RunID = 'run-001', got %q", event.RunID)
		}
		if event.Step != 3 {
			t.Errorf("expected Step = 3, got %d", event.Step)
		}
		if event.NodeID != "double" {
			t.Errorf("expected NodeID = 'double', got %q", event.NodeID)
		}
		if event.Msg != "packet:processed" {
			t.Errorf("expected Msg = 'packet:processed', got %q", event.Msg)
		}
		if event.Meta["packetId"] != "pkt-003" {
			t.Errorf("expected Meta['packetId'] = 'pkt-003', got %v", event.Meta["packetId"])
		}
	})

	t.Run("minimal event", func(t *testing.T) {
		event := Event{RunID: "run-002", Msg: "graph:started"}

		if event.Step != 0 {
			t.Errorf("expected Step = 0 (zero value), got %d", event.Step)
		}
		if event.NodeID != "" {
			t.Errorf("expected NodeID = \"\" (zero value), got %q", event.NodeID)
		}
		if event.Meta != nil {
			t.Error("expected Meta = nil (zero value)")
		}
	})

	t.Run("event with metadata", func(t *testing.T) {
		event := Event{
			RunID:  "run-003",
			Step:   1,
			NodeID: "source",
			Msg:    "packet:dropped",
			Meta: map[string]interface{}{
				"reason": "buffer full",
				"tags":   []string{"production", "high-priority"},
			},
		}

		if event.Meta["reason"] != "buffer full" {
			t.Errorf("expected reason = 'buffer full', got %v", event.Meta["reason"])
		}

		tags, ok := event.Meta["tags"].([]string)
		if !ok {
			t.Fatal("expected tags to be []string")
		}
		if len(tags) != 2 {
			t.Errorf("expected 2 tags, got %d", len(tags))
		}
	})

	t.Run("zero value event", func(t *testing.T) {
		var event Event

		if event.RunID != "" {
			t.Errorf("expected zero value RunID, got %q", event.RunID)
		}
		if event.Step != 0 {
			t.Errorf("expected zero value Step, got %d", event.Step)
		}
		if event.NodeID != "" {
			t.Errorf("expected zero value NodeID, got %q", event.NodeID)
		}
		if event.Msg != "" {
			t.Errorf("expected zero value Msg, got %q", event.Msg)
		}
		if event.Meta != nil {
			t.Error("expected zero value Meta to be nil")
		}
	})
}

func TestEvent_UseCases(t *testing.T) {
	t.Run("graph started event", func(t *testing.T) {
		event := Event{RunID: "run-001", Step: 0, Msg: "graph:started"}

		if event.Msg != "graph:started" {
			t.Errorf("expected Msg = 'graph:started', got %q", event.Msg)
		}
	})

	t.Run("packet processed event", func(t *testing.T) {
		event := Event{
			RunID:  "run-001",
			Step:   1,
			NodeID: "double",
			Msg:    "packet:processed",
			Meta: map[string]interface{}{
				"packetId": "pkt-001",
				"outCount": 2,
			},
		}

		if event.Meta["outCount"] != 2 {
			t.Errorf("expected outCount = 2, got %v", event.Meta["outCount"])
		}
	})

	t.Run("node error event", func(t *testing.T) {
		event := Event{
			RunID:  "run-001",
			Step:   2,
			NodeID: "validator",
			Msg:    "node:error",
			Meta: map[string]interface{}{
				"error": "invalid input",
			},
		}

		if event.Meta["error"] != "invalid input" {
			t.Error("expected error = 'invalid input'")
		}
	})

	t.Run("packet dropped event", func(t *testing.T) {
		event := Event{
			RunID:  "run-001",
			Step:   5,
			NodeID: "buffer",
			Msg:    "packet:dropped",
			Meta: map[string]interface{}{
				"reason":   "buffer full",
				"packetId": "pkt-005",
			},
		}

		reason, ok := event.Meta["reason"].(string)
		if !ok || reason != "buffer full" {
			t.Errorf("expected reason = 'buffer full', got %v", reason)
		}
	})
}
