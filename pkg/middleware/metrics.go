package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "matchmedia").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:   "matchmedia",
		Subsystem:   "",
		ConstLabels: nil,
		Buckets:     prometheus.DefBuckets,
		Registry:    prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus instruments.
type metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	activeSessions   prometheus.Gauge
	detachedSessions prometheus.Gauge
	mediaEvents      *prometheus.CounterVec
	compilations     *prometheus.CounterVec
	registrySize     prometheus.Gauge
	renderDuration   prometheus.Histogram
	updatesSent      prometheus.Counter
	wsErrors         *prometheus.CounterVec
	reconnectsTotal  prometheus.Counter
}

// globalMetrics is the singleton metrics instance.
// Created on first call to Prometheus().
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

// initMetrics initializes the Prometheus metrics.
func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests handled",
			ConstLabels: config.ConstLabels,
		}, []string{"path", "method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"path"}),

		requestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being served",
			ConstLabels: config.ConstLabels,
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of connected WebSocket sessions",
			ConstLabels: config.ConstLabels,
		}),

		detachedSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "detached_sessions",
			Help:        "Number of detached (disconnected but resumable) sessions",
			ConstLabels: config.ConstLabels,
		}),

		mediaEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "media_events_total",
			Help:        "Total client media events applied, by event type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		compilations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "query_compilations_total",
			Help:        "Total media query compilations, by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		registrySize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "registry_queries",
			Help:        "Number of distinct media queries registered across sessions",
			ConstLabels: config.ConstLabels,
		}),

		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "Component render pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}),

		updatesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "updates_sent_total",
			Help:        "Total HTML fragment updates sent to clients",
			ConstLabels: config.ConstLabels,
		}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_errors_total",
			Help:        "Total WebSocket errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		reconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reconnects_total",
			Help:        "Total number of session reconnections",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// statusWriter captures the response status code for the metrics labels.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Prometheus creates HTTP middleware that collects Prometheus metrics.
//
// Metrics collected on the request path:
//   - matchmedia_http_requests_total: Counter by path, method and status
//   - matchmedia_http_request_duration_seconds: Duration histogram by path
//   - matchmedia_http_requests_in_flight: Gauge of in-flight requests
//
// Domain instruments (fed via the Record* helpers below):
//   - matchmedia_active_sessions / matchmedia_detached_sessions
//   - matchmedia_media_events_total by event type
//   - matchmedia_query_compilations_total by outcome
//   - matchmedia_registry_queries
//   - matchmedia_render_duration_seconds
//   - matchmedia_updates_sent_total
//   - matchmedia_websocket_errors_total / matchmedia_reconnects_total
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(middleware.Prometheus(
//	    middleware.WithNamespace("myapp"),
//	))
//	r.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) func(http.Handler) http.Handler {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Initialize metrics once
	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if path == "" {
				path = "/"
			}

			m.requestsInFlight.Inc()
			sw := &statusWriter{ResponseWriter: w}
			start := time.Now()

			next.ServeHTTP(sw, r)

			duration := time.Since(start).Seconds()
			m.requestsInFlight.Dec()
			m.requestDuration.WithLabelValues(path).Observe(duration)

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}
			m.requestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(status)).Inc()
		})
	}
}

// =============================================================================
// Metrics Recording Functions
// =============================================================================

// RecordSessionCreate records a new session creation.
func RecordSessionCreate() {
	if globalMetrics != nil {
		globalMetrics.activeSessions.Inc()
	}
}

// RecordSessionDestroy records a session destruction.
func RecordSessionDestroy() {
	if globalMetrics != nil {
		globalMetrics.activeSessions.Dec()
	}
}

// RecordSessionDetach records a session becoming detached.
func RecordSessionDetach() {
	if globalMetrics != nil {
		globalMetrics.activeSessions.Dec()
		globalMetrics.detachedSessions.Inc()
	}
}

// RecordSessionReattach records a detached session being reattached.
func RecordSessionReattach() {
	if globalMetrics != nil {
		globalMetrics.activeSessions.Inc()
		globalMetrics.detachedSessions.Dec()
	}
}

// RecordMediaEvent records one applied client media event.
// The type label should be a short stable name ("resize", "orientation",
// "color-scheme", ...), not free-form text.
func RecordMediaEvent(eventType string) {
	if globalMetrics != nil {
		globalMetrics.mediaEvents.WithLabelValues(eventType).Inc()
	}
}

// RecordCompilation records a media query compilation attempt.
func RecordCompilation(ok bool) {
	if globalMetrics != nil {
		outcome := "ok"
		if !ok {
			outcome = "invalid"
		}
		globalMetrics.compilations.WithLabelValues(outcome).Inc()
	}
}

// SetRegistrySize records the current number of registered queries.
func SetRegistrySize(n int) {
	if globalMetrics != nil {
		globalMetrics.registrySize.Set(float64(n))
	}
}

// RecordRenderDuration records one component render pass.
func RecordRenderDuration(d time.Duration) {
	if globalMetrics != nil {
		globalMetrics.renderDuration.Observe(d.Seconds())
	}
}

// RecordUpdates records the number of fragment updates sent.
func RecordUpdates(count int) {
	if globalMetrics != nil {
		globalMetrics.updatesSent.Add(float64(count))
	}
}

// RecordWebSocketError records a WebSocket error.
func RecordWebSocketError(errorType string) {
	if globalMetrics != nil {
		globalMetrics.wsErrors.WithLabelValues(errorType).Inc()
	}
}

// RecordReconnect records a session reconnection.
// Call this when a detached session is successfully resumed.
func RecordReconnect() {
	if globalMetrics != nil {
		globalMetrics.reconnectsTotal.Inc()
	}
}

// =============================================================================
// Metrics Collector
// =============================================================================

// Collector exposes the instruments for custom registrations, so
// engine metrics can be collected alongside application metrics.
type Collector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	activeSessions   prometheus.Gauge
	detachedSessions prometheus.Gauge
	mediaEvents      *prometheus.CounterVec
	compilations     *prometheus.CounterVec
	registrySize     prometheus.Gauge
	renderDuration   prometheus.Histogram
	updatesSent      prometheus.Counter
	wsErrors         *prometheus.CounterVec
	reconnectsTotal  prometheus.Counter
}

// GetMetrics returns the global metrics collector.
// Returns nil if Prometheus middleware has not been initialized.
func GetMetrics() *Collector {
	if globalMetrics == nil {
		return nil
	}
	return &Collector{
		requestsTotal:    globalMetrics.requestsTotal,
		requestDuration:  globalMetrics.requestDuration,
		requestsInFlight: globalMetrics.requestsInFlight,
		activeSessions:   globalMetrics.activeSessions,
		detachedSessions: globalMetrics.detachedSessions,
		mediaEvents:      globalMetrics.mediaEvents,
		compilations:     globalMetrics.compilations,
		registrySize:     globalMetrics.registrySize,
		renderDuration:   globalMetrics.renderDuration,
		updatesSent:      globalMetrics.updatesSent,
		wsErrors:         globalMetrics.wsErrors,
		reconnectsTotal:  globalMetrics.reconnectsTotal,
	}
}
