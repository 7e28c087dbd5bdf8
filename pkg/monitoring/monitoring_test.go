package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/logger"
)

func newTestTracing(t *testing.T) *TracingManager {
	tm, err := NewTracingManager(&TracingConfig{
		ServiceName:    "booking-test",
		ServiceVersion: "test",
		Environment:    "test",
		SamplingRate:   1.0,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tm.Shutdown(context.Background()) })
	return tm
}

func TestMetricsCollector_RecordBooking(t *testing.T) {
	m := NewMetricsCollector("booking")

	m.RecordBooking("success")
	m.RecordBooking("success")
	m.RecordBooking("slot_unavailable")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookingsTotal.WithLabelValues("success", "booking")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingsTotal.WithLabelValues("slot_unavailable", "booking")))
}

func TestMetricsCollector_IndependentRegistries(t *testing.T) {
	// Two collectors in one process must not collide on registration.
	assert.NotPanics(t, func() {
		NewMetricsCollector("a")
		NewMetricsCollector("b")
	})
}

func TestMetricsCollector_Handler(t *testing.T) {
	m := NewMetricsCollector("booking")
	m.RecordCacheLookup(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "appointment_cache_lookups_total"))
}

func TestHealthManager_AggregatesStatus(t *testing.T) {
	hm := NewHealthManager("booking", "test")
	hm.RegisterChecker("ledger", ErrorHealthChecker(func(ctx context.Context) error { return nil }))

	report := hm.CheckHealth(context.Background())
	assert.Equal(t, HealthStatusHealthy, report.Status)
	require.Len(t, report.Checks, 1)
	assert.Equal(t, "ledger", report.Checks[0].Name)

	hm.RegisterChecker("cache", ErrorHealthChecker(func(ctx context.Context) error { return errors.New("connection refused") }))
	report = hm.CheckHealth(context.Background())
	assert.Equal(t, HealthStatusUnhealthy, report.Status)
	assert.Equal(t, 1, report.Summary[string(HealthStatusUnhealthy)])
	assert.Equal(t, "cache", report.Checks[0].Name)
}

func TestHealthManager_DegradedIsNotUnhealthy(t *testing.T) {
	hm := NewHealthManager("booking", "test")
	hm.SetTimeout(time.Second)
	hm.RegisterChecker("db", NewCustomHealthChecker(func(ctx context.Context) HealthCheck {
		return HealthCheck{Status: HealthStatusDegraded, Message: "slow"}
	}))

	assert.Equal(t, HealthStatusDegraded, hm.CheckHealth(context.Background()).Status)
}

func TestMonitoringMiddleware_SetsRequestIDAndRecordsMetrics(t *testing.T) {
	metrics := NewMetricsCollector("booking")
	mm := NewMonitoringMiddleware(metrics, newTestTracing(t), logger.NewNop(), func(r *http.Request) string { return "/api/test" })

	var seenRequestID interface{}
	handler := mm.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenRequestID = r.Context().Value(logger.RequestIDKey)
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test?x=1", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-1", seenRequestID)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/api/test", "418", "booking")))
}
