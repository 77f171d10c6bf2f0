package graph

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// emaAlpha is the smoothing factor for the average-latency EMA. The spec
// notes that a running mean is unstable for long-lived nodes and prefers
// an EMA over a plain running mean; alpha≈0.2 trades off responsiveness
// against smoothing.
const emaAlpha = 0.2

// NodeMetrics is the atomic, concurrency-safe counter set a BaseNode keeps
// for itself. Snapshot returns a consistent point-in-time copy.
type NodeMetrics struct {
	packetsIn       atomic.Int64
	packetsOut      atomic.Int64
	packetsDropped  atomic.Int64
	packetsErrored  atomic.Int64
	lastProcessedAt atomic.Int64 // unix millis

	mu             sync.Mutex
	averageLatency float64 // milliseconds, EMA
}

// Snapshot is an immutable, point-in-time read of a node's metrics.
type Snapshot struct {
	PacketsIn       int64
	PacketsOut      int64
	PacketsDropped  int64
	PacketsErrored  int64
	AverageLatency  float64
	LastProcessedAt int64
}

// RecordIn increments the in-counter exactly once per admitted packet.
func (m *NodeMetrics) RecordIn() { m.packetsIn.Add(1) }

// RecordOut increments the out-counter; may be called more than once per
// input packet for nodes that emit multiple derived packets.
func (m *NodeMetrics) RecordOut(n int64) { m.packetsOut.Add(n) }

// RecordDropped increments the dropped-counter.
func (m *NodeMetrics) RecordDropped() { m.packetsDropped.Add(1) }

// RecordErrored increments the errored-counter.
func (m *NodeMetrics) RecordErrored() { m.packetsErrored.Add(1) }

// RecordLatency folds a new latency sample into the running EMA and
// updates LastProcessedAt.
func (m *NodeMetrics) RecordLatency(d time.Duration) {
	ms := float64(d.Microseconds()) / 1000.0
	m.mu.Lock()
	if m.averageLatency == 0 {
		m.averageLatency = ms
	} else {
		m.averageLatency = emaAlpha*ms + (1-emaAlpha)*m.averageLatency
	}
	m.mu.Unlock()
	m.lastProcessedAt.Store(time.Now().UnixMilli())
}

// Snapshot returns a consistent point-in-time copy of the metrics.
func (m *NodeMetrics) Snapshot() Snapshot {
	m.mu.Lock()
	avg := m.averageLatency
	m.mu.Unlock()
	return Snapshot{
		PacketsIn:       m.packetsIn.Load(),
		PacketsOut:      m.packetsOut.Load(),
		PacketsDropped:  m.packetsDropped.Load(),
		PacketsErrored:  m.packetsErrored.Load(),
		AverageLatency:  avg,
		LastProcessedAt: m.lastProcessedAt.Load(),
	}
}

// PrometheusMetrics is the optional Prometheus-backed metrics sink for a
// runner: gauges/counters/histograms namespaced "flowgraph_", one vector
// per packet-level outcome (processed, dropped, errored, retried) plus
// per-node latency and buffer depth.
type PrometheusMetrics struct {
	packetsTotal   *prometheus.CounterVec
	packetsDropped *prometheus.CounterVec
	packetsErrored *prometheus.CounterVec
	nodeLatencyMs  *prometheus.HistogramVec
	retriesTotal   *prometheus.CounterVec
	bufferDepth    *prometheus.GaugeVec

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics registers the runtime's metrics with registry (use
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() for test isolation).
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		enabled: true,
		packetsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowgraph",
			Name:      "packets_total",
			Help:      "Total packets observed per node, labeled by outcome",
		}, []string{"node_id", "outcome"}), // outcome: in, out (drops and errors have their own counters)
		packetsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowgraph",
			Name:      "packets_dropped_total",
			Help:      "Total packets dropped per node, labeled by reason",
		}, []string{"node_id", "reason"}),
		packetsErrored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowgraph",
			Name:      "packets_errored_total",
			Help:      "Total packets that errored per node",
		}, []string{"node_id"}),
		nodeLatencyMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowgraph",
			Name:      "node_latency_ms",
			Help:      "Packet processing duration per node, in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		}, []string{"node_id"}),
		retriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowgraph",
			Name:      "retries_total",
			Help:      "Total retry attempts per node",
		}, []string{"node_id"}),
		bufferDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "flowgraph",
			Name:      "buffer_depth",
			Help:      "Current buffered packet count per node",
		}, []string{"node_id"}),
	}
}

func (pm *PrometheusMetrics) IncPacketsIn(nodeID string) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.packetsTotal.WithLabelValues(nodeID, "in").Inc()
}

func (pm *PrometheusMetrics) IncPacketsOut(nodeID string, n int64) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.packetsTotal.WithLabelValues(nodeID, "out").Add(float64(n))
}

func (pm *PrometheusMetrics) IncDropped(nodeID, reason string) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.packetsDropped.WithLabelValues(nodeID, reason).Inc()
}

func (pm *PrometheusMetrics) IncErrored(nodeID string) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.packetsErrored.WithLabelValues(nodeID).Inc()
}

func (pm *PrometheusMetrics) ObserveLatency(nodeID string, d time.Duration) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.nodeLatencyMs.WithLabelValues(nodeID).Observe(float64(d.Microseconds()) / 1000.0)
}

func (pm *PrometheusMetrics) IncRetries(nodeID string) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.retriesTotal.WithLabelValues(nodeID).Inc()
}

func (pm *PrometheusMetrics) SetBufferDepth(nodeID string, depth int) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.bufferDepth.WithLabelValues(nodeID).Set(float64(depth))
}

func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	pm.enabled = false
	pm.mu.Unlock()
}

func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	pm.enabled = true
	pm.mu.Unlock()
}

func (pm *PrometheusMetrics) isEnabled() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}
