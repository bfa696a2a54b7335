package server

import (
	"sync/atomic"
	"time"
)

// ServerMetrics aggregates metrics across the server.
type ServerMetrics struct {
	// Sessions
	ActiveSessions   int64
	DetachedSessions int64
	TotalSessions    int64
	SessionCreates   int64
	SessionCloses    int64
	PeakSessions     int64

	// Events
	EventsReceived  int64
	EventsProcessed int64
	EventsDropped   int64

	// Updates
	UpdatesSent int64
	UpdateBytes int64

	// Network
	BytesSent     int64
	BytesReceived int64

	// Errors
	RenderPanics int64
	WriteErrors  int64
	ReadErrors   int64

	// Latency (microseconds)
	EventLatencyP50 int64
	EventLatencyP99 int64

	// Timestamp
	CollectedAt time.Time
}

// Metrics returns a snapshot of server metrics, merging session manager
// stats with the collector's counters.
func (s *Server) Metrics() *ServerMetrics {
	metrics := s.metrics.Snapshot()

	stats := s.sessions.Stats()
	metrics.ActiveSessions = int64(stats.Active)
	metrics.DetachedSessions = int64(stats.Detached)
	metrics.TotalSessions = int64(stats.TotalCreated)
	metrics.SessionCreates = int64(stats.TotalCreated)
	metrics.SessionCloses = int64(stats.TotalClosed)
	metrics.PeakSessions = int64(stats.Peak)

	return metrics
}

// MetricsCollector collects and aggregates metrics over time.
type MetricsCollector struct {
	// Counters (atomic)
	eventsReceived  atomic.Int64
	eventsProcessed atomic.Int64
	eventsDropped   atomic.Int64
	updatesSent     atomic.Int64
	updateBytes     atomic.Int64
	bytesSent       atomic.Int64
	bytesReceived   atomic.Int64
	renderPanics    atomic.Int64
	writeErrors     atomic.Int64
	readErrors      atomic.Int64

	// Latency tracking
	latencies []int64
	latencyMu atomic.Int32 // Simple spinlock
}

// NewMetricsCollector creates a new MetricsCollector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		latencies: make([]int64, 0, 1000),
	}
}

// RecordEventReceived records an event received.
func (m *MetricsCollector) RecordEventReceived() {
	m.eventsReceived.Add(1)
}

// RecordEventProcessed records an event processed.
func (m *MetricsCollector) RecordEventProcessed() {
	m.eventsProcessed.Add(1)
}

// RecordEventDropped records an event dropped.
func (m *MetricsCollector) RecordEventDropped() {
	m.eventsDropped.Add(1)
}

// RecordUpdatesSent records HTML updates sent.
func (m *MetricsCollector) RecordUpdatesSent(count int, bytes int) {
	m.updatesSent.Add(int64(count))
	m.updateBytes.Add(int64(bytes))
}

// RecordBytesSent records bytes sent.
func (m *MetricsCollector) RecordBytesSent(n int) {
	m.bytesSent.Add(int64(n))
}

// RecordBytesReceived records bytes received.
func (m *MetricsCollector) RecordBytesReceived(n int) {
	m.bytesReceived.Add(int64(n))
}

// RecordRenderPanic records a component render panic.
func (m *MetricsCollector) RecordRenderPanic() {
	m.renderPanics.Add(1)
}

// RecordWriteError records a write error.
func (m *MetricsCollector) RecordWriteError() {
	m.writeErrors.Add(1)
}

// RecordReadError records a read error.
func (m *MetricsCollector) RecordReadError() {
	m.readErrors.Add(1)
}

// RecordEventLatency records event processing latency in microseconds.
func (m *MetricsCollector) RecordEventLatency(latencyUs int64) {
	// Simple spinlock for latency array
	for !m.latencyMu.CompareAndSwap(0, 1) {
		// Spin
	}
	defer m.latencyMu.Store(0)

	// Keep only recent samples
	if len(m.latencies) >= 1000 {
		m.latencies = m.latencies[500:] // Drop oldest half
	}
	m.latencies = append(m.latencies, latencyUs)
}

// Snapshot returns current metrics.
func (m *MetricsCollector) Snapshot() *ServerMetrics {
	metrics := &ServerMetrics{
		EventsReceived:  m.eventsReceived.Load(),
		EventsProcessed: m.eventsProcessed.Load(),
		EventsDropped:   m.eventsDropped.Load(),
		UpdatesSent:     m.updatesSent.Load(),
		UpdateBytes:     m.updateBytes.Load(),
		BytesSent:       m.bytesSent.Load(),
		BytesReceived:   m.bytesReceived.Load(),
		RenderPanics:    m.renderPanics.Load(),
		WriteErrors:     m.writeErrors.Load(),
		ReadErrors:      m.readErrors.Load(),
		CollectedAt:     time.Now(),
	}

	// Calculate latency percentiles
	metrics.EventLatencyP50, metrics.EventLatencyP99 = m.latencyPercentiles()

	return metrics
}

// latencyPercentiles calculates P50 and P99 latencies.
func (m *MetricsCollector) latencyPercentiles() (p50, p99 int64) {
	// Simple spinlock
	for !m.latencyMu.CompareAndSwap(0, 1) {
		// Spin
	}
	defer m.latencyMu.Store(0)

	n := len(m.latencies)
	if n == 0 {
		return 0, 0
	}

	// Copy and sort
	sorted := make([]int64, n)
	copy(sorted, m.latencies)

	// Simple sort (not efficient but fine for small arrays)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if sorted[i] > sorted[j] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}

	p50 = sorted[n/2]
	p99 = sorted[(n*99)/100]

	return p50, p99
}

// Reset resets all counters.
func (m *MetricsCollector) Reset() {
	m.eventsReceived.Store(0)
	m.eventsProcessed.Store(0)
	m.eventsDropped.Store(0)
	m.updatesSent.Store(0)
	m.updateBytes.Store(0)
	m.bytesSent.Store(0)
	m.bytesReceived.Store(0)
	m.renderPanics.Store(0)
	m.writeErrors.Store(0)
	m.readErrors.Store(0)

	// Clear latencies
	for !m.latencyMu.CompareAndSwap(0, 1) {
		// Spin
	}
	m.latencies = m.latencies[:0]
	m.latencyMu.Store(0)
}
