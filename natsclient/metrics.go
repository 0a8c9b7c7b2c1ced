package natsclient

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/sonto/metric"
)

// clientMetrics feeds the shared NATS gauges of the core metrics and owns the
// client's error counters. A nil *clientMetrics records nothing.
type clientMetrics struct {
	core        *metric.Metrics
	kvErrors    *prometheus.CounterVec
	replyErrors *prometheus.CounterVec
}

func newClientMetrics(registry *metric.MetricsRegistry) (*clientMetrics, error) {
	m := &clientMetrics{
		core: registry.CoreMetrics(),
		kvErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "nats",
			Name:      "kv_errors_total",
			Help:      "KV operations that returned an error",
		}, []string{"operation"}),
		replyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "nats",
			Name:      "reply_errors_total",
			Help:      "Requests answered with an error or that could not be answered",
		}, []string{"subject"}),
	}

	if err := registry.RegisterCounterVec("nats", "kv_errors", m.kvErrors); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("nats", "reply_errors", m.replyErrors); err != nil {
		registry.Unregister("nats", "kv_errors")
		return nil, err
	}

	return m, nil
}

func (m *clientMetrics) recordStatus(connected bool) {
	if m != nil {
		m.core.RecordNATSStatus(connected)
	}
}

func (m *clientMetrics) recordReconnect() {
	if m != nil {
		m.core.RecordNATSReconnect()
	}
}

func (m *clientMetrics) recordKVError(operation string) {
	if m != nil {
		m.kvErrors.WithLabelValues(operation).Inc()
	}
}

func (m *clientMetrics) recordReplyError(subject string) {
	if m != nil {
		m.replyErrors.WithLabelValues(subject).Inc()
	}
}
