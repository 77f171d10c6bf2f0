package runner

import (
	"github.com/dshills/flowgraph-go/graph/emit"
	"github.com/google/uuid"
)

// EventKind enumerates the graph-level event kinds a Runner dispatches.
type EventKind string

const (
	EventGraphStarted   EventKind = "graph:started"
	EventGraphStopped   EventKind = "graph:stopped"
	EventGraphError     EventKind = "graph:error"
	EventNodeError      EventKind = "node:error"
	EventPacketProcessed EventKind = "packet:processed"
	EventPacketDropped  EventKind = "packet:dropped"
	EventPacketError    EventKind = "packet:error"
)

// On registers a listener for a single event kind and returns a listener id
// for later removal via Off. Listener failures are recovered and otherwise
// ignored — they never affect the node or packet that triggered them.
func (r *Runner) On(kind EventKind, cb func(emit.Event)) string {
	id := uuid.NewString()
	r.listenersMu.Lock()
	if r.listeners[kind] == nil {
		r.listeners[kind] = make(map[string]func(emit.Event))
	}
	r.listeners[kind][id] = cb
	r.listenersMu.Unlock()
	return id
}

// Off removes a listener previously registered with On.
func (r *Runner) Off(kind EventKind, listenerID string) {
	r.listenersMu.Lock()
	delete(r.listeners[kind], listenerID)
	r.listenersMu.Unlock()
}

// emitEvent forwards an event to the ambient emit.Emitter (log/otel/
// buffered/null, whichever was configured) and fans it out to every listener
// registered for kind via On.
func (r *Runner) emitEvent(kind EventKind, nodeID string, meta map[string]any) {
	ev := emit.Event{
		RunID:  r.def.ID,
		Step:   int(r.eventStep.Add(1)),
		NodeID: nodeID,
		Msg:    string(kind),
		Meta:   meta,
	}
	if r.emitter != nil {
		r.emitter.Emit(ev)
	}

	r.listenersMu.RLock()
	var cbs []func(emit.Event)
	for _, cb := range r.listeners[kind] {
		cbs = append(cbs, cb)
	}
	r.listenersMu.RUnlock()

	for _, cb := range cbs {
		r.safeNotifyListener(cb, ev)
	}
}

func (r *Runner) safeNotifyListener(cb func(emit.Event), ev emit.Event) {
	defer func() { _ = recover() }()
	cb(ev)
}
