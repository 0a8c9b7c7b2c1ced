package metric

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sonto/errors"
	"github.com/c360/sonto/health"
)

func gatheredNames(t *testing.T, registry *MetricsRegistry) map[string]bool {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	require.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.Same(t, registry.Metrics, registry.CoreMetrics())
}

func TestMetricsRegistry_RegisterCollectors(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "A test counter"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "A test gauge"})
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_histogram", Help: "A test histogram"})
	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_counter_vec", Help: "vec"}, []string{"l"})

	require.NoError(t, registry.RegisterCounter("engine", "test_counter", counter))
	require.NoError(t, registry.RegisterGauge("engine", "test_gauge", gauge))
	require.NoError(t, registry.RegisterHistogram("engine", "test_histogram", histogram))
	require.NoError(t, registry.RegisterCounterVec("engine", "test_counter_vec", counterVec))

	counter.Inc()
	gauge.Set(42)
	histogram.Observe(0.5)
	counterVec.WithLabelValues("x").Inc()

	names := gatheredNames(t, registry)
	for _, name := range []string{"test_counter", "test_gauge", "test_histogram", "test_counter_vec"} {
		assert.True(t, names[name], "%s should be gathered", name)
	}
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "first"})
	second := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "first"})

	require.NoError(t, registry.RegisterCounter("engine", "dup_counter", first))

	err := registry.RegisterCounter("engine", "dup_counter", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	// Same prometheus name under a different key is a prometheus conflict
	err = registry.RegisterCounter("other", "dup_counter", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "temp_gauge", Help: "temporary"})
	require.NoError(t, registry.RegisterGauge("engine", "temp_gauge", gauge))

	assert.True(t, registry.Unregister("engine", "temp_gauge"))
	assert.False(t, registry.Unregister("engine", "temp_gauge"))
	assert.False(t, gatheredNames(t, registry)["temp_gauge"])

	// Re-registration after removal is allowed
	require.NoError(t, registry.RegisterGauge("engine", "temp_gauge", gauge))
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("concurrent_counter_%d", i)
			counter := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: "concurrent"})
			errs <- registry.RegisterCounter("engine", name, counter)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestCoreMetrics_RecordMethods(t *testing.T) {
	registry := NewMetricsRegistry()
	m := registry.CoreMetrics()

	m.RecordServiceStatus("ontology", 2)
	m.RecordRequest("ontology", "isa", 150*time.Microsecond)
	m.RecordRequest("ontology", "isa", 90*time.Microsecond)
	m.RecordError("ontology", "decode")
	m.RecordSnapshot("ontology", true)
	m.RecordSnapshot("ontology", false)
	m.RecordNATSStatus(true)
	m.RecordNATSReconnect()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ServiceStatus.WithLabelValues("ontology")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsReceived.WithLabelValues("ontology", "isa")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("ontology", "decode")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotPublished.WithLabelValues("ontology", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NATSConnected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NATSReconnects))

	names := gatheredNames(t, registry)
	assert.True(t, names["sonto_requests_received_total"])
	assert.True(t, names["go_goroutines"], "runtime collectors should be registered")
}

func TestServer_Handler(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordNATSStatus(true)

	status := health.NewUnhealthy("sonto", "ontology not loaded")
	srv := NewServer(0, "", registry, func() health.Status { return status })
	assert.Equal(t, "http://localhost:9090/metrics", srv.Address())

	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"ontology not loaded"`)

	status = health.NewDegraded("sonto", "nats reconnecting")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	NewServer(0, "", registry, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sonto_nats_connected 1")
}

func TestServer_StartRequiresRegistry(t *testing.T) {
	srv := NewServer(19091, "/metrics", nil, nil)
	err := srv.Start()
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}
