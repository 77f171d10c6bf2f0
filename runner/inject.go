package runner

import "github.com/dshills/flowgraph-go/graph"

// manualInjector is implemented by node.SourceNode; kept local so this
// package doesn't need a node.Runtime-level Inject method that every other
// node kind would have to stub out.
type manualInjector interface {
	Inject(payload any, metadata map[string]any)
}

// Inject synthesizes a packet at nodeID, valid only for manual source
// nodes. Any other node kind or source kind fails with InvalidTargetError.
func (r *Runner) Inject(nodeID string, payload any, metadata map[string]any) error {
	cfg := r.def.NodeByID(nodeID)
	if cfg == nil {
		return &graph.InvalidTargetError{Operation: "inject", NodeID: nodeID, Reason: "node does not exist"}
	}
	if cfg.Kind != graph.NodeKindSource || cfg.Source == nil || cfg.Source.Kind != graph.SourceManual {
		return &graph.InvalidTargetError{Operation: "inject", NodeID: nodeID, Reason: "not a manual source node"}
	}

	r.initMu.Lock()
	rt, ok := r.nodes[nodeID]
	r.initMu.Unlock()
	if !ok {
		return &graph.InvalidTargetError{Operation: "inject", NodeID: nodeID, Reason: "node not built"}
	}

	injector, ok := rt.(manualInjector)
	if !ok {
		return &graph.InvalidTargetError{Operation: "inject", NodeID: nodeID, Reason: "node does not support injection"}
	}
	injector.Inject(payload, metadata)
	return nil
}
