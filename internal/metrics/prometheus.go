// Package metrics provides Prometheus metrics for the dashboard gateway.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	requestsTotal          *prometheus.CounterVec
	requestDuration        *prometheus.HistogramVec
	requestsInFlight       prometheus.Gauge
	clusterRequestsTotal   *prometheus.CounterVec
	clusterRequestDuration *prometheus.HistogramVec
	bootTotal              *prometheus.CounterVec
	bootDuration           prometheus.Histogram
	clusterReachable       prometheus.Gauge
	notificationsTotal     *prometheus.CounterVec
	healthStatus           prometheus.Gauge
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// NewMetrics creates and registers Prometheus metrics. Metrics are registered once per process.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			requestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "flink_dashboard_http_requests_total",
					Help: "Total number of inbound HTTP requests",
				},
				[]string{"method", "route", "status"},
			),
			requestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "flink_dashboard_http_request_duration_seconds",
					Help:    "Inbound HTTP request duration in seconds",
					Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
				},
				[]string{"method", "route"},
			),
			requestsInFlight: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "flink_dashboard_http_requests_in_flight",
					Help: "Number of inbound HTTP requests currently being processed",
				},
			),
			clusterRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "flink_dashboard_cluster_requests_total",
					Help: "Total number of outbound requests to the cluster REST API",
				},
				[]string{"method", "outcome"},
			),
			clusterRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "flink_dashboard_cluster_request_duration_seconds",
					Help:    "Outbound cluster request duration in seconds",
					Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
				},
				[]string{"method"},
			),
			bootTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "flink_dashboard_boot_total",
					Help: "Boot probe outcomes by reason",
				},
				[]string{"reason"},
			),
			bootDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "flink_dashboard_boot_duration_seconds",
					Help:    "Duration of the boot probe in seconds",
					Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
				},
			),
			clusterReachable: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "flink_dashboard_cluster_reachable",
					Help: "Whether the cluster was reachable on the last observation (1 = reachable)",
				},
			),
			notificationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "flink_dashboard_notifications_total",
					Help: "Operator notifications by result (shown, suppressed)",
				},
				[]string{"result"},
			),
			healthStatus: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "flink_dashboard_health_status",
					Help: "Health status of the dashboard gateway (1 = healthy, 0 = unhealthy)",
				},
			),
		}
	})

	return globalMetrics
}

// RecordHTTPRequest records metrics for an inbound HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordClusterRequest records an outbound cluster request. outcome is a status code or an error kind.
func (m *Metrics) RecordClusterRequest(method, outcome string, duration time.Duration) {
	m.clusterRequestsTotal.WithLabelValues(method, outcome).Inc()
	m.clusterRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordBoot records the boot outcome. An empty reason is a successful boot.
func (m *Metrics) RecordBoot(reason string, duration time.Duration) {
	if reason == "" {
		reason = "ok"
	}
	m.bootTotal.WithLabelValues(reason).Inc()
	m.bootDuration.Observe(duration.Seconds())
}

// SetClusterReachable sets the reachability gauge.
func (m *Metrics) SetClusterReachable(reachable bool) {
	if reachable {
		m.clusterReachable.Set(1)
	} else {
		m.clusterReachable.Set(0)
	}
}

// RecordNotification counts a notification as shown or suppressed.
func (m *Metrics) RecordNotification(shown bool) {
	if shown {
		m.notificationsTotal.WithLabelValues("shown").Inc()
	} else {
		m.notificationsTotal.WithLabelValues("suppressed").Inc()
	}
}

// SetHealthStatus sets the health status.
func (m *Metrics) SetHealthStatus(healthy bool) {
	if healthy {
		m.healthStatus.Set(1)
	} else {
		m.healthStatus.Set(0)
	}
}

// MetricsServer provides a separate HTTP server for Prometheus metrics.
type MetricsServer struct {
	server *http.Server
	logger *zap.Logger
}

// NewMetricsServer creates a new metrics server.
func NewMetricsServer(port int, path string, logger *zap.Logger) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	return &MetricsServer{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
		logger: logger,
	}
}

// Start starts the metrics server. It returns nil once the server is shut down.
func (ms *MetricsServer) Start() error {
	ms.logger.Info("starting metrics server", zap.String("addr", ms.server.Addr))
	if err := ms.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the metrics server.
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

// MetricsMiddleware records inbound HTTP metrics. route resolves the label for a request so that
// path parameters do not explode label cardinality.
func MetricsMiddleware(m *Metrics, route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.requestsInFlight.Inc()
			defer m.requestsInFlight.Dec()

			start := time.Now()
			rw := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			m.RecordHTTPRequest(r.Method, route(r), rw.statusCode, time.Since(start))
		})
	}
}

type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
