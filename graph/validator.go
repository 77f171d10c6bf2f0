package graph

// Validate checks a Definition's structural invariants:
// node ids are unique, every edge endpoint references an existing node,
// every node carries the fields its kind requires, and — unless
// Config.AllowCycles is true — the graph is a DAG.
func Validate(d *Definition) error {
	seen := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if seen[n.ID] {
			return NewValidationError("duplicate node id: "+n.ID, ErrDuplicateNodeID)
		}
		seen[n.ID] = true
		if err := validateNodeConfig(&n); err != nil {
			return err
		}
	}

	for _, e := range d.Edges {
		if !seen[e.From] {
			return NewValidationError("edge references unknown source node: "+e.From, ErrDanglingEdge)
		}
		if !seen[e.To] {
			return NewValidationError("edge references unknown target node: "+e.To, ErrDanglingEdge)
		}
	}

	if !d.Config.AllowCycles {
		if cyclePath, ok := findCycle(d); ok {
			return NewValidationError("Graph contains cycles: "+cyclePath, ErrCyclicGraph)
		}
	}

	return nil
}

func validateNodeConfig(n *NodeConfig) error {
	switch n.Kind {
	case NodeKindSource:
		if n.Source == nil {
			return NewValidationError("source node "+n.ID+" missing SourceOptions", nil)
		}
	case NodeKindTransform:
		if n.Transform == nil || n.Transform.Fn == nil {
			return NewValidationError("transform node "+n.ID+" missing transform function", nil)
		}
	case NodeKindFilter:
		if n.Filter == nil || n.Filter.Fn == nil {
			return NewValidationError("filter node "+n.ID+" missing filter function", nil)
		}
	case NodeKindAggregate:
		if n.Aggregate == nil || n.Aggregate.Fn == nil {
			return NewValidationError("aggregate node "+n.ID+" missing aggregate function", nil)
		}
	case NodeKindSink:
		if n.Sink == nil {
			return NewValidationError("sink node "+n.ID+" missing SinkOptions", nil)
		}
	default:
		return NewValidationError("node "+n.ID+" has unknown kind "+string(n.Kind), ErrUnknownNodeKind)
	}
	return nil
}

// findCycle runs DFS over the adjacency implied by d.Edges and reports the
// first cycle found, rendered as "a -> b -> a" for diagnostics.
func findCycle(d *Definition) (string, bool) {
	adj := make(map[string][]string, len(d.Nodes))
	for _, e := range d.Edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(d.Nodes))
	var path []string

	var visit func(id string) (string, bool)
	visit = func(id string) (string, bool) {
		color[id] = gray
		path = append(path, id)
		for _, next := range adj[id] {
			switch color[next] {
			case gray:
				return renderCycle(path, next), true
			case white:
				if desc, found := visit(next); found {
					return desc, true
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return "", false
	}

	for _, n := range d.Nodes {
		if color[n.ID] == white {
			if desc, found := visit(n.ID); found {
				return desc, true
			}
		}
	}
	return "", false
}

func renderCycle(path []string, closingAt string) string {
	start := 0
	for i, id := range path {
		if id == closingAt {
			start = i
			break
		}
	}
	out := ""
	for _, id := range path[start:] {
		out += id + " -> "
	}
	return out + closingAt
}
