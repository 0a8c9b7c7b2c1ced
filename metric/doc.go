// Package metric provides Prometheus-based metrics collection and an HTTP
// server for sonto.
//
// The MetricsRegistry owns a private prometheus.Registry holding the core
// process metrics (service status, request counts and latency, NATS
// connection state) plus the Go runtime and process collectors. Components
// such as the ontology engine and the closure cache register their own
// collectors through the MetricsRegistrar interface, which rejects duplicate
// registrations with an invalid-class error instead of panicking.
//
// Basic usage:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry, func() health.Status {
//	    return monitor.AggregateHealth("sonto")
//	})
//	if err := server.Start(); err != nil {
//	    return err
//	}
//	defer server.Stop(ctx)
//
//	registry.CoreMetrics().RecordRequest("ontology", "isa", elapsed)
//
// The server also answers /health with the JSON health report: 200 while it
// is healthy or degraded, 503 once it is unhealthy.
package metric
