// Package observability provides structured logging, Prometheus metrics,
// health probes, OpenTelemetry setup and graceful shutdown for the admin
// binaries.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("route", name).Info("route access snapshot reloaded")
//
// Request-scoped loggers carry request_id and user_id:
//
//	observability.FromContext(r.Context()).Warn("scan removed stale entries")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.GateDecisionsTotal.WithLabelValues("deny", "route_disabled").Inc()
//
// HTTP metrics are labelled by mux route name, so HTTPMetricsMiddleware is
// installed with Router.Use.
//
// # Health
//
// HealthChecker serves /health/live and /health/ready on the health port.
// The database is required; Redis and registered optional checks (S3) only
// degrade readiness.
//
// # Tracing
//
// InitOTel installs OTLP/gRPC providers when enabled. StartSpan works with or
// without it.
package observability
