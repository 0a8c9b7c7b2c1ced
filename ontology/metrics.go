package ontology

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/sonto/metric"
)

const metricsService = "ontology"

// EngineMetrics holds the Prometheus collectors for one engine.
type EngineMetrics struct {
	queries       *prometheus.CounterVec
	queryDuration prometheus.Histogram
	notFound      prometheus.Counter
	closureBuilds prometheus.Counter
	graphTerms    prometheus.Gauge
	graphEdges    prometheus.Gauge
}

func newEngineMetrics(registrar metric.MetricsRegistrar) (*EngineMetrics, error) {
	m := &EngineMetrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "ontology",
			Name:      "queries_total",
			Help:      "is-a queries by outcome (true, false, unresolved)",
		}, []string{"result"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: "ontology",
			Name:      "query_duration_seconds",
			Help:      "is-a query latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10),
		}),
		notFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "ontology",
			Name:      "terms_not_found_total",
			Help:      "Distinct identifiers that failed to resolve",
		}),
		closureBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "ontology",
			Name:      "closure_builds_total",
			Help:      "Ancestor closures computed",
		}),
		graphTerms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "ontology",
			Name:      "graph_terms",
			Help:      "Terms in the loaded ontology",
		}),
		graphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "ontology",
			Name:      "graph_edges",
			Help:      "is-a edges in the loaded ontology",
		}),
	}

	if err := registrar.RegisterCounterVec(metricsService, "queries_total", m.queries); err != nil {
		return nil, err
	}
	if err := registrar.RegisterHistogram(metricsService, "query_duration_seconds", m.queryDuration); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounter(metricsService, "terms_not_found_total", m.notFound); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounter(metricsService, "closure_builds_total", m.closureBuilds); err != nil {
		return nil, err
	}
	if err := registrar.RegisterGauge(metricsService, "graph_terms", m.graphTerms); err != nil {
		return nil, err
	}
	if err := registrar.RegisterGauge(metricsService, "graph_edges", m.graphEdges); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *EngineMetrics) recordQuery(result string, seconds float64) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(result).Inc()
	m.queryDuration.Observe(seconds)
}

func (m *EngineMetrics) recordNotFound() {
	if m == nil {
		return
	}
	m.notFound.Inc()
}

func (m *EngineMetrics) recordClosureBuild() {
	if m == nil {
		return
	}
	m.closureBuilds.Inc()
}

func (m *EngineMetrics) recordGraph(g *Graph) {
	if m == nil {
		return
	}
	m.graphTerms.Set(float64(g.Len()))
	m.graphEdges.Set(float64(g.EdgeCount()))
}
