package packet

import "testing"

func TestNewAssignsUniqueIDsAndTimestamp(t *testing.T) {
	a := New(21, nil)
	b := New(21, nil)

	if a.ID == "" || b.ID == "" {
		t.Fatal("expected non-empty ids")
	}
	if a.ID == b.ID {
		t.Fatal("expected distinct ids for distinct packets")
	}
	if a.Timestamp == 0 {
		t.Fatal("expected non-zero timestamp")
	}
	if a.Payload != 21 {
		t.Fatalf("expected payload 21, got %v", a.Payload)
	}
}

func TestWithMetadataMergesWithoutMutatingOriginal(t *testing.T) {
	p := New("x", map[string]any{"a": 1})
	derived := p.WithMetadata(map[string]any{"b": 2})

	if _, ok := p.Metadata["b"]; ok {
		t.Fatal("original packet metadata must not be mutated")
	}
	if derived.Metadata["a"] != 1 || derived.Metadata["b"] != 2 {
		t.Fatalf("expected merged metadata, got %v", derived.Metadata)
	}
	if derived.ID != p.ID {
		t.Fatal("WithMetadata must preserve packet id")
	}
}

func TestWithPayloadPreservesIDAndTimestamp(t *testing.T) {
	p := New(1, nil)
	out := p.WithPayload(2)

	if out.ID != p.ID || out.Timestamp != p.Timestamp {
		t.Fatal("WithPayload must keep id/timestamp stable")
	}
	if out.Payload != 2 {
		t.Fatalf("expected payload 2, got %v", out.Payload)
	}
	if p.Payload != 1 {
		t.Fatal("original packet payload must be untouched")
	}
}

func TestWithErrorSetsFailed(t *testing.T) {
	p := New(1, nil)
	if p.Failed() {
		t.Fatal("fresh packet must not be failed")
	}

	errored := p.WithError(ErrKindUserCode, "boom")
	if !errored.Failed() {
		t.Fatal("expected errored packet to report Failed()")
	}
	if errored.Err.Kind != ErrKindUserCode || errored.Err.Message != "boom" {
		t.Fatalf("unexpected error: %+v", errored.Err)
	}
	if p.Failed() {
		t.Fatal("original packet must remain unaffected")
	}
}
