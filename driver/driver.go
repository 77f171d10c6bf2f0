// Package driver defines the external-collaborator interfaces a source or
// sink node of kind "http"/"websocket"/"database"/"driver" delegates to,
// plus reference implementations.
package driver

import "context"

// Message is the payload/metadata pair exchanged with an external system,
// the driver-facing equivalent of a packet.
type Message struct {
	Payload  any
	Metadata map[string]any
}

// SourceDriver is polled by a "driver"-kind source node for inbound
// messages. Poll blocks until a message is available, ctx is done, or the
// driver reports EOF via a non-nil error.
type SourceDriver interface {
	Open(ctx context.Context) error
	Poll(ctx context.Context) (Message, error)
	Close(ctx context.Context) error
}

// SinkDriver is written to by a sink node, one message at a time.
type SinkDriver interface {
	Open(ctx context.Context) error
	Write(ctx context.Context, msg Message) error
	Close(ctx context.Context) error
}

// BatchSinkDriver additionally accepts a batched write, used by the
// database sink kind's threshold/timer flush.
type BatchSinkDriver interface {
	SinkDriver
	WriteBatch(ctx context.Context, msgs []Message) error
}

// WebsocketDriver is an interface-only external collaborator, deliberately
// excluding an actual websocket client implementation: Send delivers one
// frame, Connected reports the current link state so the sink node knows
// whether to buffer or flush.
type WebsocketDriver interface {
	Connected() bool
	Send(ctx context.Context, msg Message) error
}
