package runner

import (
	"time"

	"github.com/dshills/flowgraph-go/graph"
)

// RunnerMetrics is the graph-wide aggregate the background ticker refreshes:
// packetsProcessed sums every node's packetsIn, and avgLatency is the
// packetsIn-weighted average of each node's own EMA latency.
type RunnerMetrics struct {
	PacketsProcessed int64
	PacketsOut       int64
	PacketsDropped   int64
	PacketsErrored   int64
	AverageLatency   float64
	UpdatedAt        int64 // unix millis

	// Nodes holds each node's own on-demand snapshot as of UpdatedAt.
	Nodes map[string]graph.Snapshot
}

// GetMetrics returns the most recently computed runner-wide aggregate. It
// is refreshed on a background tick (default 5s, see WithMetricsTick) once
// the graph is running, and once more synchronously by Stop.
func (r *Runner) GetMetrics() RunnerMetrics {
	r.metricsMu.RLock()
	defer r.metricsMu.RUnlock()
	return r.metricsCache
}

// NodeMetrics returns a single node's metrics snapshot on demand, bypassing
// the cached runner-wide aggregate.
func (r *Runner) NodeMetrics(nodeID string) (graph.Snapshot, bool) {
	r.initMu.Lock()
	rt, ok := r.nodes[nodeID]
	r.initMu.Unlock()
	if !ok {
		return graph.Snapshot{}, false
	}
	return rt.Metrics(), true
}

// recomputeMetrics rebuilds the cached RunnerMetrics from every node's
// current snapshot:
//
//	packetsProcessed = Σ packetsIn
//	avgLatency       = Σ(avgLatencyᵢ·packetsInᵢ) / max(1, Σ packetsInᵢ)
func (r *Runner) recomputeMetrics() {
	r.initMu.Lock()
	nodes := make(map[string]graph.Snapshot, len(r.nodes))
	for id, rt := range r.nodes {
		nodes[id] = rt.Metrics()
	}
	r.initMu.Unlock()

	var totalIn, totalOut, totalDropped, totalErrored int64
	var weightedLatency float64
	for _, s := range nodes {
		totalIn += s.PacketsIn
		totalOut += s.PacketsOut
		totalDropped += s.PacketsDropped
		totalErrored += s.PacketsErrored
		weightedLatency += s.AverageLatency * float64(s.PacketsIn)
	}
	denom := totalIn
	if denom < 1 {
		denom = 1
	}

	snapshot := RunnerMetrics{
		PacketsProcessed: totalIn,
		PacketsOut:       totalOut,
		PacketsDropped:   totalDropped,
		PacketsErrored:   totalErrored,
		AverageLatency:   weightedLatency / float64(denom),
		UpdatedAt:        time.Now().UnixMilli(),
		Nodes:            nodes,
	}

	r.metricsMu.Lock()
	r.metricsCache = snapshot
	r.metricsMu.Unlock()
}
