// Package health provides health check endpoints for the dashboard gateway.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/devrev/flink-dashboard/internal/model"
	"go.uber.org/zap"
)

// StatusSource exposes the last known cluster status.
type StatusSource interface {
	Get() (model.ClusterStatus, bool)
}

// Pinger is a dependency whose connectivity is reported by the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthRecorder observes readiness results.
type HealthRecorder interface {
	SetHealthStatus(healthy bool)
}

// HealthCheck manages health check functionality.
type HealthCheck struct {
	status    StatusSource
	activated func() bool
	cache     Pinger
	recorder  HealthRecorder
	logger    *zap.Logger
}

// NewHealthCheck creates a new HealthCheck instance. cache and recorder may be nil.
func NewHealthCheck(status StatusSource, activated func() bool, cache Pinger, recorder HealthRecorder, logger *zap.Logger) *HealthCheck {
	return &HealthCheck{
		status:    status,
		activated: activated,
		cache:     cache,
		recorder:  recorder,
		logger:    logger,
	}
}

// LivenessResponse represents the response for the liveness check.
type LivenessResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse represents the response for the readiness check.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// LivenessHandler handles GET /health requests.
// Returns 200 OK if the process is running.
func (hc *HealthCheck) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{Status: "healthy"})
}

// ReadinessHandler handles GET /ready requests.
// Returns 200 OK once routes are active. An unreachable cluster is reported as degraded, since the
// dashboard still serves its shell and the cached cluster state.
func (hc *HealthCheck) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if !hc.activated() {
		hc.record(false)
		writeJSON(w, http.StatusServiceUnavailable, ReadinessResponse{
			Status: "not_ready",
			Checks: map[string]string{"routes": "initializing"},
		})
		return
	}

	resp := ReadinessResponse{
		Status: "ready",
		Checks: map[string]string{"routes": "active"},
	}

	st, ok := hc.status.Get()
	switch {
	case !ok:
		resp.Checks["cluster"] = "unknown"
	case st.Reachable:
		resp.Checks["cluster"] = "reachable"
	default:
		resp.Checks["cluster"] = "unreachable"
		resp.Status = "degraded"
		resp.Error = st.Error
	}

	if hc.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := hc.cache.Ping(ctx)
		cancel()
		if err != nil {
			hc.logger.Warn("cache health check failed", zap.Error(err))
			resp.Checks["cache"] = "unhealthy"
			resp.Status = "degraded"
		} else {
			resp.Checks["cache"] = "healthy"
		}
	}

	hc.record(resp.Status == "ready")
	writeJSON(w, http.StatusOK, resp)
}

func (hc *HealthCheck) record(healthy bool) {
	if hc.recorder != nil {
		hc.recorder.SetHealthStatus(healthy)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
