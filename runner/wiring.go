package runner

import (
	"context"

	"github.com/dshills/flowgraph-go/node"
	"github.com/dshills/flowgraph-go/packet"
)

// edgeDispatcher is installed once per node at Initialize and delivers
// every packet the node emits across each of its outgoing edges: evaluate
// the edge's predicate and mapper (graph.Edge.Apply), enforce the cyclic-
// graph iteration cap, then hand the result to the destination node's
// Process.
//
// Edges for a node are fixed at Initialize time, so they are captured once
// here rather than re-read from the definition on every packet.
func (r *Runner) edgeDispatcher(fromID string) node.Subscriber {
	edges := r.def.EdgesFrom(fromID)
	return func(p packet.Packet) {
		for i := range edges {
			e := edges[i]
			out, deliver := e.Apply(p, r)
			if !deliver {
				continue
			}

			if r.def.Config.MaxIterations > 0 {
				hops, _ := out.Metadata[hopMetaKey].(int)
				hops++
				if hops > r.def.Config.MaxIterations {
					r.recordIterationCapDrop(e.To, out)
					continue
				}
				out = out.WithMetadata(map[string]any{hopMetaKey: hops})
			}

			to, ok := r.nodes[e.To]
			if !ok {
				continue
			}
			to.Process(context.Background(), out)
		}
	}
}

// recordIterationCapDrop reports a packet dropped by the edge fabric itself
// (before it ever reaches the destination node's admission queue), so the
// destination's own NodeMetrics never sees it.
func (r *Runner) recordIterationCapDrop(nodeID string, p packet.Packet) {
	if r.prom != nil {
		r.prom.IncDropped(nodeID, "iteration cap")
	}
	r.emitEvent(EventPacketDropped, nodeID, map[string]any{"packetId": p.ID, "reason": "iteration cap"})
}
