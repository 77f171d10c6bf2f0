package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/flowgraph-go/graph"
	"github.com/dshills/flowgraph-go/packet"
)

// errFiltered is a sentinel ProcessFunc error meaning "drop, not an
// error": handle() recognizes it and records a drop instead of an errored
// count or a retry attempt.
var errFiltered = errors.New("node: filtered")

// newTransformProcess adapts a user TransformFunc. On success
// the payload is replaced and metadata gains {transformedBy, transformedAt}.
// On failure, when the node has no retry policy, the ORIGINAL packet is
// forwarded with Err set and metadata augmented by {errorNode, errorAt} —
// the node keeps flowing rather than entering the error state. When a
// retry policy is configured, the error is instead handed to BaseNode's
// generic retry/fail path.
func newTransformProcess(id string, fn graph.TransformFunc, hasRetry bool) ProcessFunc {
	return func(_ context.Context, p packet.Packet) ([]packet.Packet, error) {
		out, err := fn(p.Payload, p.Metadata)
		if err != nil {
			if hasRetry {
				return nil, &graph.UserCodeError{NodeID: id, Stage: "transform", Cause: err}
			}
			failed := p.WithError(packet.ErrKindUserCode, err.Error()).WithMetadata(map[string]any{
				"errorNode": id,
				"errorAt":   time.Now().UnixMilli(),
			})
			return []packet.Packet{failed}, nil
		}
		transformed := p.WithPayload(out).WithMetadata(map[string]any{
			"transformedBy": id,
			"transformedAt": time.Now().UnixMilli(),
		})
		return []packet.Packet{transformed}, nil
	}
}

// newFilterProcess adapts a user FilterFunc: a true result passes the
// packet through unchanged; false, or a thrown error, is treated uniformly
// as a drop with reason "filtered" — filter never retries. The thrown
// error is wrapped into the returned error, which handle discards; it is
// not logged.
func newFilterProcess(id string, fn graph.FilterFunc) ProcessFunc {
	return func(_ context.Context, p packet.Packet) ([]packet.Packet, error) {
		keep, err := fn(p.Payload, p.Metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: node %s filter error: %v", errFiltered, id, err)
		}
		if !keep {
			return nil, errFiltered
		}
		return []packet.Packet{p}, nil
	}
}
