package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_Singleton(t *testing.T) {
	assert.Same(t, NewMetrics(), NewMetrics())
}

func TestMetrics_RecordBoot(t *testing.T) {
	m := NewMetrics()

	before := testutil.ToFloat64(m.bootTotal.WithLabelValues("ok"))
	m.RecordBoot("", 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(m.bootTotal.WithLabelValues("ok")))

	beforeNet := testutil.ToFloat64(m.bootTotal.WithLabelValues("network error"))
	m.RecordBoot("network error", time.Second)
	assert.Equal(t, beforeNet+1, testutil.ToFloat64(m.bootTotal.WithLabelValues("network error")))
}

func TestMetrics_Gauges(t *testing.T) {
	m := NewMetrics()

	m.SetClusterReachable(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.clusterReachable))
	m.SetClusterReachable(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.clusterReachable))

	m.SetHealthStatus(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.healthStatus))
}

func TestMetrics_RecordNotification(t *testing.T) {
	m := NewMetrics()

	before := testutil.ToFloat64(m.notificationsTotal.WithLabelValues("suppressed"))
	m.RecordNotification(false)
	assert.Equal(t, before+1, testutil.ToFloat64(m.notificationsTotal.WithLabelValues("suppressed")))
}

func TestMetricsMiddleware(t *testing.T) {
	m := NewMetrics()
	route := func(*http.Request) string { return "/api/status" }

	before := testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodGet, "/api/status", "418"))

	handler := MetricsMiddleware(m, route)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodGet, "/api/status", "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.requestsInFlight))
}
