package emit

// Event is one observability record emitted while a graph runs.
//
// Event kinds (carried in Msg, not as a separate enum, so new kinds don't
// require an Emitter interface change):
//   - graph:started, graph:stopped, graph:error — graph-level lifecycle.
//   - node:error — a node transitioned to its terminal error state.
//   - packet:processed, packet:dropped, packet:error — per-packet outcomes.
type Event struct {
	// RunID identifies the graph run (Definition.ID) that emitted this event.
	RunID string

	// Step is a monotonically increasing sequence number assigned by the
	// runner, unique within one run. It lets a backend reconstruct total
	// event order even when two nodes emit within the same millisecond.
	// Zero for events emitted outside a runner (e.g. in tests).
	Step int

	// NodeID identifies which node the event concerns. Empty for
	// graph-level events (graph:started, graph:stopped).
	NodeID string

	// Msg is the event kind, e.g. "packet:processed" or "graph:error".
	Msg string

	// Meta carries kind-specific structured data. Common keys:
	//   - "packetId": the packet.Packet.ID the event concerns.
	//   - "reason": why a packet was dropped ("buffer full", "iteration cap", ...).
	//   - "error": an error's message.
	//   - "outCount": how many packets a processing step produced.
	Meta map[string]interface{}
}
