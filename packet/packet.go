// Package packet defines the envelope that flows through a dataflow graph.
package packet

import (
	"time"

	"github.com/google/uuid"
)

// ErrorKind classifies why a packet carries an error.
//
// Kinds mirror the runtime's error taxonomy: a packet can fail validation
// before it ever enters a node, fail user code inside a node, fail a
// driver call, or time out.
type ErrorKind string

const (
	// ErrKindValidation marks a packet rejected by graph/structural validation.
	ErrKindValidation ErrorKind = "validation"
	// ErrKindUserCode marks a packet that failed inside a predicate, mapper,
	// transform, filter, or aggregate function.
	ErrKindUserCode ErrorKind = "user_code"
	// ErrKindDriver marks a packet that failed a source or sink driver call.
	ErrKindDriver ErrorKind = "driver"
	// ErrKindTimeout marks a packet whose per-packet timeout elapsed.
	ErrKindTimeout ErrorKind = "timeout"
)

// Error is the optional error carried by a Packet once it has failed
// processing. It never causes the packet to be dropped silently; it is
// attached to the packet so callers can observe *why* processing failed.
type Error struct {
	Kind    ErrorKind
	Message string
}

// Packet is the immutable unit of flow through the graph: an id, a
// timestamp, an arbitrary payload, free-form metadata, and an optional
// error. The runtime never rewrites a packet's id, but may synthesize a
// brand-new Packet (with a fresh id) when it derives output — for example
// an aggregate window's emitted packet.
type Packet struct {
	ID        string
	Timestamp int64 // unix milliseconds
	Payload   any
	Metadata  map[string]any
	Err       *Error
}

// New creates a packet with a fresh id and the current timestamp.
func New(payload any, metadata map[string]any) Packet {
	return Packet{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
		Metadata:  cloneMeta(metadata),
	}
}

// Derive creates a new packet (fresh id, current timestamp) whose metadata
// is a copy of what the caller passes in; it adds no provenance of its own
// (aggregate nodes put the origin node and window there themselves). Used by
// aggregate nodes to emit a window's output without rewriting the inputs
// that produced it.
func Derive(payload any, metadata map[string]any) Packet {
	return New(payload, metadata)
}

// WithMetadata returns a copy of p with additional metadata keys merged in.
// The original packet's id and timestamp are preserved; existing keys with
// the same name are overwritten.
func (p Packet) WithMetadata(extra map[string]any) Packet {
	out := p
	out.Metadata = cloneMeta(p.Metadata)
	for k, v := range extra {
		out.Metadata[k] = v
	}
	return out
}

// WithPayload returns a copy of p with the payload replaced. Used by
// transform nodes and edge mappers, which must not mutate the original
// packet in place (other subscribers/edges may still observe it).
func (p Packet) WithPayload(payload any) Packet {
	out := p
	out.Payload = payload
	out.Metadata = cloneMeta(p.Metadata)
	return out
}

// WithError returns a copy of p decorated with an error of the given kind.
// The payload is left untouched: errored packets still carry their last
// known payload so subscribers can inspect what failed.
func (p Packet) WithError(kind ErrorKind, message string) Packet {
	out := p
	out.Metadata = cloneMeta(p.Metadata)
	out.Err = &Error{Kind: kind, Message: message}
	return out
}

// Failed reports whether the packet carries an error.
func (p Packet) Failed() bool {
	return p.Err != nil
}

func cloneMeta(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}
