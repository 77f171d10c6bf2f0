package graph

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNodeMetricsSnapshot(t *testing.T) {
	var m NodeMetrics
	m.RecordIn()
	m.RecordIn()
	m.RecordOut(2)
	m.RecordDropped()
	m.RecordErrored()
	m.RecordLatency(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap.PacketsIn != 2 {
		t.Errorf("PacketsIn = %d, want 2", snap.PacketsIn)
	}
	if snap.PacketsOut != 2 {
		t.Errorf("PacketsOut = %d, want 2", snap.PacketsOut)
	}
	if snap.PacketsDropped != 1 {
		t.Errorf("PacketsDropped = %d, want 1", snap.PacketsDropped)
	}
	if snap.PacketsErrored != 1 {
		t.Errorf("PacketsErrored = %d, want 1", snap.PacketsErrored)
	}
	if snap.AverageLatency <= 0 {
		t.Errorf("AverageLatency = %v, want > 0", snap.AverageLatency)
	}
	if snap.LastProcessedAt == 0 {
		t.Error("expected LastProcessedAt to be set")
	}
}

func TestNodeMetricsEMASmoothsNewSamples(t *testing.T) {
	var m NodeMetrics
	m.RecordLatency(10 * time.Millisecond)
	first := m.Snapshot().AverageLatency

	m.RecordLatency(100 * time.Millisecond)
	second := m.Snapshot().AverageLatency

	if second <= first {
		t.Fatalf("expected average to move toward new sample: first=%v second=%v", first, second)
	}
	if second >= 100 {
		t.Fatalf("expected EMA to smooth, not jump straight to the new sample: got %v", second)
	}
}

func TestPrometheusMetricsDisableSuppressesRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)
	pm.Disable()
	// Should not panic even while disabled.
	pm.IncPacketsIn("n1")
	pm.IncDropped("n1", "not running")
	pm.ObserveLatency("n1", time.Millisecond)
	pm.Enable()
	pm.IncPacketsIn("n1")
}
