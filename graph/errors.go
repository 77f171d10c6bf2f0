// Package graph provides graph definition, validation, and configuration
// for the streaming dataflow runtime.
package graph

import "errors"

// Sentinel errors for conditions that carry no useful extra context.
var (
	// ErrDuplicateNodeID is returned by the validator when two nodes share an id.
	ErrDuplicateNodeID = errors.New("graph: duplicate node id")
	// ErrDanglingEdge is returned when an edge references a node that does not exist.
	ErrDanglingEdge = errors.New("graph: edge references unknown node")
	// ErrCyclicGraph is returned when AllowCycles is false and the graph contains a cycle.
	ErrCyclicGraph = errors.New("graph: contains cycles")
	// ErrUnknownNodeKind is returned when a NodeConfig's Kind is not recognized.
	ErrUnknownNodeKind = errors.New("graph: unknown node kind")
)

// ValidationError reports a structural problem with a GraphDefinition:
// duplicate ids, dangling edges, disallowed cycles, or missing
// kind-specific configuration. Validation errors fail Builder.Build or
// Runner.Initialize and are never recoverable.
type ValidationError struct {
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return "validation error: " + e.Message
	}
	if e.Cause != nil {
		return "validation error: " + e.Cause.Error()
	}
	return "validation error"
}

// Unwrap exposes the underlying sentinel so callers can use errors.Is.
func (e *ValidationError) Unwrap() error { return e.Cause }

// NewValidationError wraps a sentinel (or any error) with a human-readable message.
func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}

// InvalidTargetError is returned when an operation is misapplied to a node
// of the wrong kind, e.g. Inject on a non-manual source.
type InvalidTargetError struct {
	Operation string
	NodeID    string
	Reason    string
}

func (e *InvalidTargetError) Error() string {
	return "invalid target: " + e.Operation + " on node " + e.NodeID + ": " + e.Reason
}

// UserCodeError wraps a panic or error raised by a predicate, mapper,
// transform, filter, or aggregate function supplied by the user.
type UserCodeError struct {
	NodeID string
	Stage  string // "predicate", "mapper", "transform", "filter", "aggregate"
	Cause  error
}

func (e *UserCodeError) Error() string {
	msg := "user code error"
	if e.NodeID != "" {
		msg += " in node " + e.NodeID
	}
	if e.Stage != "" {
		msg += " (" + e.Stage + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *UserCodeError) Unwrap() error { return e.Cause }

// DriverError wraps a source or sink driver failure: connection, write, or parse.
type DriverError struct {
	NodeID string
	Op     string // "open", "write", "close", "poll"
	Cause  error
}

func (e *DriverError) Error() string {
	msg := "driver error"
	if e.NodeID != "" {
		msg += " in node " + e.NodeID
	}
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *DriverError) Unwrap() error { return e.Cause }

// TimeoutError is returned when a packet's per-packet timeout elapses
// before processing completes.
type TimeoutError struct {
	NodeID   string
	PacketID string
}

func (e *TimeoutError) Error() string {
	return "timeout processing packet " + e.PacketID + " in node " + e.NodeID
}

// BufferOverflowError is surfaced only under BufferBlock, when the
// caller refuses to wait for buffer space. Any other buffer strategy
// manifests as a packet:dropped event instead of this error.
type BufferOverflowError struct {
	NodeID string
}

func (e *BufferOverflowError) Error() string {
	return "buffer overflow in node " + e.NodeID
}
