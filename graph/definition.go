package graph

import "time"

// NodeKind discriminates the union of node configurations a GraphDefinition
// can contain.
type NodeKind string

const (
	NodeKindSource    NodeKind = "source"
	NodeKindTransform NodeKind = "transform"
	NodeKindFilter    NodeKind = "filter"
	NodeKindAggregate NodeKind = "aggregate"
	NodeKindSink      NodeKind = "sink"
)

// SourceKind enumerates the kinds of sources the core recognizes.
type SourceKind string

const (
	SourceTimer     SourceKind = "timer"
	SourceManual    SourceKind = "manual"
	SourceWebsocket SourceKind = "websocket"
	SourceHTTP      SourceKind = "http"
	SourceDatabase  SourceKind = "database"
	SourceDriver    SourceKind = "driver"
)

// SinkKind enumerates the kinds of sinks the core recognizes.
type SinkKind string

const (
	SinkLog       SinkKind = "log"
	SinkHTTP      SinkKind = "http"
	SinkWebsocket SinkKind = "websocket"
	SinkDatabase  SinkKind = "database"
	SinkCustom    SinkKind = "custom"
)

// WindowKind enumerates the aggregate node's supported window types.
type WindowKind string

const (
	WindowCount   WindowKind = "count"
	WindowTime    WindowKind = "time"
	WindowSession WindowKind = "session"
	WindowSliding WindowKind = "sliding"
)

// EmissionStrategy controls when an aggregate node publishes output.
type EmissionStrategy string

const (
	// EmitOnComplete emits once the window becomes ready, then clears it
	// (sliding windows never clear; they keep the last WindowSize packets).
	EmitOnComplete EmissionStrategy = "onComplete"
	// EmitIncremental emits on every admission with the buffer's current
	// contents, without clearing until the window closes.
	EmitIncremental EmissionStrategy = "incremental"
)

// TransformFunc is user code applied to a packet's payload and metadata by
// a transform node. It is compiled/bound once at node initialize and
// invoked per packet; it must not be re-parsed per packet.
type TransformFunc func(payload any, metadata map[string]any) (any, error)

// FilterFunc is user code applied to a packet's payload and metadata by a
// filter node. A true result passes the packet through; false (or an
// error) drops it.
type FilterFunc func(payload any, metadata map[string]any) (bool, error)

// AggregateFunc reduces a window's buffered packets to a single output
// payload.
type AggregateFunc func(payloads []any, metadatas []map[string]any) (any, error)

// SinkFunc is the user callback invoked by a "custom" sink.
type SinkFunc func(payload any, metadata map[string]any) error

// SourceOptions configures a source node.
type SourceOptions struct {
	Kind SourceKind
	// IntervalMs is the emission period for SourceTimer, in milliseconds.
	IntervalMs int64
	// DriverParams carries kind-specific connection parameters for
	// websocket/http/database/driver sources.
	DriverParams map[string]any
}

// TransformOptions configures a transform node.
type TransformOptions struct {
	Fn TransformFunc
}

// FilterOptions configures a filter node.
type FilterOptions struct {
	Fn FilterFunc
}

// AggregateOptions configures an aggregate node.
type AggregateOptions struct {
	Window WindowKind
	// WindowSize is the packet count bound for count and sliding windows.
	WindowSize int
	// WindowDurationMs is the duration bound for time windows.
	WindowDurationMs int64
	Strategy         EmissionStrategy
	Fn               AggregateFunc
}

// SinkOptions configures a sink node.
type SinkOptions struct {
	Kind SinkKind
	// Method is the HTTP method for SinkHTTP (default POST).
	Method string
	// DriverParams carries kind-specific connection parameters.
	DriverParams map[string]any
	// Fn is the callback for SinkCustom.
	Fn SinkFunc
}

// NodeConfig is a discriminated union over node kind with fields common to
// every kind plus one populated kind-specific options struct.
type NodeConfig struct {
	ID         string
	Name       string
	Kind       NodeKind
	BufferSize int
	Timeout    time.Duration
	Retry      *RetryPolicy

	Source    *SourceOptions
	Transform *TransformOptions
	Filter    *FilterOptions
	Aggregate *AggregateOptions
	Sink      *SinkOptions
}

// EffectiveBufferSize returns the configured buffer size, or the documented
// default (1000) when unset.
func (n *NodeConfig) EffectiveBufferSize() int {
	if n.BufferSize > 0 {
		return n.BufferSize
	}
	return defaultBufferSize
}

// EffectiveTimeout returns the node's own timeout, falling back to the
// graph-wide default when the node specifies none.
func (n *NodeConfig) EffectiveTimeout(graphDefault time.Duration) time.Duration {
	if n.Timeout > 0 {
		return n.Timeout
	}
	return graphDefault
}

// Definition is the immutable output of graph assembly: a fully specified,
// (optionally) validated graph ready to be handed to a runner.
type Definition struct {
	ID      string
	Name    string
	Version string
	Nodes   []NodeConfig
	Edges   []Edge
	Config  Config
}

// NodeByID returns the node config with the given id, or nil.
func (d *Definition) NodeByID(id string) *NodeConfig {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// EdgesFrom returns all edges whose From equals nodeID, in declaration order.
func (d *Definition) EdgesFrom(nodeID string) []Edge {
	var out []Edge
	for _, e := range d.Edges {
		if e.From == nodeID {
			out = append(out, e)
		}
	}
	return out
}
