package graph

import "github.com/dshills/flowgraph-go/packet"

// RunnerContext is the read-only view of runner state exposed to edge
// predicates, so a predicate can make routing decisions that depend on
// graph-wide variables (Runner.SetVariable/GetVariable) without the edge
// fabric needing to import the runner package.
type RunnerContext interface {
	Variable(key string) (any, bool)
}

// EdgePredicate decides whether a packet should traverse an edge. It is
// evaluated with the packet's payload, its metadata, and the runner
// context. A false result or a panic drops the packet for this edge only
// — other edges from the same source are unaffected.
type EdgePredicate func(payload any, metadata map[string]any, rc RunnerContext) bool

// EdgeMapper transforms a packet's payload as it crosses an edge. An error
// (or panic) leaves the original packet untouched and never blocks
// delivery; the error itself is discarded, not logged or reported.
type EdgeMapper func(payload any, metadata map[string]any, rc RunnerContext) (any, error)

// Edge is a directed connection between two nodes, optionally decorated
// with a predicate and/or a mapper. Edges subscribe to the "From" node's
// emitted packets and, for each one: evaluate Predicate (if any), apply
// Mapper (if any), then deliver to the "To" node's Process.
type Edge struct {
	ID        string
	From      string
	To        string
	Predicate EdgePredicate
	Mapper    EdgeMapper
}

// Apply evaluates the edge's predicate and mapper against p, returning the
// (possibly mapped) packet to deliver and whether it should be delivered
// at all. Predicate/mapper panics are recovered and treated as spec
// mandates: predicate panic/false => don't deliver; mapper panic/error =>
// deliver the original, unmapped packet.
func (e *Edge) Apply(p packet.Packet, rc RunnerContext) (packet.Packet, bool) {
	if e.Predicate != nil {
		if !safePredicate(e.Predicate, p, rc) {
			return p, false
		}
	}
	if e.Mapper != nil {
		if mapped, ok := safeMapper(e.Mapper, p, rc); ok {
			return p.WithPayload(mapped), true
		}
		return p, true
	}
	return p, true
}

func safePredicate(pred EdgePredicate, p packet.Packet, rc RunnerContext) (result bool) {
	defer func() {
		if recover() != nil {
			result = false
		}
	}()
	return pred(p.Payload, p.Metadata, rc)
}

func safeMapper(mapper EdgeMapper, p packet.Packet, rc RunnerContext) (result any, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	mapped, err := mapper(p.Payload, p.Metadata, rc)
	if err != nil {
		return nil, false
	}
	return mapped, true
}
