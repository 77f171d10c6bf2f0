package runner

import (
	"fmt"
	"sync/atomic"

	"github.com/dshills/flowgraph-go/graph"
	"github.com/dshills/flowgraph-go/node"
	"github.com/dshills/flowgraph-go/packet"
	"github.com/google/uuid"
)

// SubscribePredicate filters which packets reach a Subscribe callback. It
// is evaluated at the runner boundary rather than inside the node (spec
// §4.7, §9): the node emits every packet it produces regardless of any
// external subscription, and the Runner applies the predicate itself
// before invoking cb.
type SubscribePredicate func(payload any, metadata map[string]any) bool

// subscription is one external Subscribe registration.
type subscription struct {
	id        string
	nodeID    string
	predicate SubscribePredicate
	cb        func(payload any, metadata map[string]any)
	active    atomic.Bool
}

// Subscribe registers cb to receive every packet nodeID emits, optionally
// filtered by predicate (nil means unconditional). It returns a
// subscription id that Unsubscribe accepts.
func (r *Runner) Subscribe(nodeID string, cb func(payload any, metadata map[string]any), predicate SubscribePredicate) (string, error) {
	if r.def.NodeByID(nodeID) == nil {
		return "", &graph.InvalidTargetError{Operation: "subscribe", NodeID: nodeID, Reason: "node does not exist"}
	}
	sub := &subscription{id: uuid.NewString(), nodeID: nodeID, predicate: predicate, cb: cb}
	sub.active.Store(true)

	r.subsMu.Lock()
	r.subsByNode[nodeID] = append(r.subsByNode[nodeID], sub)
	r.subsByID[sub.id] = sub
	r.subsMu.Unlock()
	return sub.id, nil
}

// Unsubscribe removes a subscription previously returned by Subscribe.
func (r *Runner) Unsubscribe(id string) error {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	sub, ok := r.subsByID[id]
	if !ok {
		return fmt.Errorf("runner: no such subscription %q", id)
	}
	sub.active.Store(false)
	delete(r.subsByID, id)

	entries := r.subsByNode[sub.nodeID]
	for i, e := range entries {
		if e.id == id {
			r.subsByNode[sub.nodeID] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	return nil
}

// subscriptionDispatcher is installed once per node at Initialize and
// fans every emitted packet out to that node's live external subscriptions.
func (r *Runner) subscriptionDispatcher(nodeID string) node.Subscriber {
	return func(p packet.Packet) {
		r.subsMu.RLock()
		entries := append([]*subscription(nil), r.subsByNode[nodeID]...)
		r.subsMu.RUnlock()

		for _, sub := range entries {
			if !sub.active.Load() {
				continue
			}
			if sub.predicate != nil && !sub.predicate(p.Payload, p.Metadata) {
				continue
			}
			r.safeNotifySubscriber(sub.cb, p)
		}
	}
}

func (r *Runner) safeNotifySubscriber(cb func(payload any, metadata map[string]any), p packet.Packet) {
	defer func() { _ = recover() }()
	cb(p.Payload, p.Metadata)
}
