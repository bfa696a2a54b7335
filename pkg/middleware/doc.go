// Package middleware provides production-grade HTTP middleware for
// matchmedia servers.
//
// This package includes:
//   - Prometheus metrics middleware plus domain instruments
//   - OpenTelemetry distributed tracing middleware
//
// # Prometheus Metrics
//
// The Prometheus middleware collects request metrics and exposes the
// engine's domain instruments (session gauges, media event counters,
// query compilation counters, render durations):
//
//	r := chi.NewRouter()
//	r.Use(middleware.Prometheus())
//	r.Handle("/metrics", promhttp.Handler())
//	r.Mount("/", srv.Handler())
//
// The domain instruments are fed through the Record* helpers; call them
// from your server hooks:
//
//	middleware.RecordSessionCreate()
//	middleware.RecordMediaEvent("resize")
//	middleware.RecordCompilation(err == nil)
//
// # OpenTelemetry Middleware
//
// The OpenTelemetry middleware creates a span per HTTP request and
// injects the trace context into the request context, so downstream
// database and HTTP calls inherit the trace:
//
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-app"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
package middleware
