package emit

import "context"

// NullEmitter implements Emitter by discarding every event. Useful for
// production deployments where observability overhead is unwanted, or for
// tests that don't care about the event stream a graph run produces.
type NullEmitter struct{}

// NewNullEmitter returns an Emitter that discards everything it's given.
// Safe for concurrent use; has no allocation or I/O cost.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards event.
func (n *NullEmitter) Emit(event Event) {
	// No-op: discard the event.
}

// EmitBatch discards events and always reports success.
func (n *NullEmitter) EmitBatch(_ context.Context, events []Event) error {
	return nil
}

// Flush is a no-op: NullEmitter buffers nothing.
func (n *NullEmitter) Flush(_ context.Context) error {
	return nil
}
