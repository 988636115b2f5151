// Package handler provides HTTP request handlers for the dashboard gateway.
package handler

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/devrev/flink-dashboard/internal/cluster"
	apierrors "github.com/devrev/flink-dashboard/internal/errors"
	"github.com/devrev/flink-dashboard/internal/interceptor"
	"github.com/devrev/flink-dashboard/internal/model"
	"github.com/devrev/flink-dashboard/internal/notify"
	"github.com/devrev/flink-dashboard/internal/provider"
	"github.com/devrev/flink-dashboard/internal/widget"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var shellTemplate = template.Must(template.ParseFS(templateFS, "templates/shell.html"))

// StatusSource exposes the last known cluster status.
type StatusSource interface {
	Get() (model.ClusterStatus, bool)
}

// BootSource exposes the resolved boot outcome.
type BootSource interface {
	Outcome() (model.BootOutcome, bool)
}

// Refresher re-reads the cluster status.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Deps are the collaborators of Handlers.
type Deps struct {
	Client       *cluster.Client
	Status       StatusSource
	Boot         BootSource
	Refresher    Refresher
	Providers    *provider.ProviderSet
	Addon        *widget.AddonCompact
	ErrorHandler *apierrors.Handler
	Logger       *zap.Logger
	Timeout      time.Duration
}

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	client       *cluster.Client
	status       StatusSource
	boot         BootSource
	providers    *provider.ProviderSet
	center       *notify.Center
	addon        *widget.AddonCompact
	errorHandler *apierrors.Handler
	logger       *zap.Logger
	timeout      time.Duration
}

// NewHandlers creates a new Handlers instance and binds the addon's reload to a status refresh.
func NewHandlers(deps Deps) *Handlers {
	h := &Handlers{
		client:       deps.Client,
		status:       deps.Status,
		boot:         deps.Boot,
		providers:    deps.Providers,
		center:       deps.Providers.Center(),
		addon:        deps.Addon,
		errorHandler: deps.ErrorHandler,
		logger:       deps.Logger,
		timeout:      deps.Timeout,
	}

	if deps.Refresher != nil {
		refresher := deps.Refresher
		h.addon.OnReload(func() {
			ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
			defer cancel()
			if err := refresher.Refresh(ctx); err != nil {
				h.logger.Warn("reload failed", zap.Error(err))
			}
		})
	}
	return h
}

// BootResponse summarizes the boot outcome.
type BootResponse struct {
	Succeeded bool   `json:"succeeded"`
	Reason    string `json:"reason,omitempty"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Status   *model.ClusterStatus `json:"status,omitempty"`
	Boot     *BootResponse        `json:"boot,omitempty"`
	Degraded bool                 `json:"degraded"`
}

// ConfigResponse is returned by GET /api/config.
type ConfigResponse struct {
	Cluster *model.ClusterConfig `json:"cluster"`
	Locale  string               `json:"locale"`
	Theme   string               `json:"theme"`
}

// GetStatus handles GET /api/status requests.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	var resp StatusResponse
	if st, ok := h.status.Get(); ok {
		resp.Status = &st
	}
	if outcome, ok := h.boot.Outcome(); ok {
		resp.Boot = &BootResponse{Succeeded: outcome.Succeeded(), Reason: outcome.Reason}
	}
	resp.Degraded, _ = h.degraded()

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// GetConfig handles GET /api/config requests.
func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	resp := ConfigResponse{
		Locale: h.providers.Locale().String(),
		Theme:  h.providers.Theme(),
	}
	if st, ok := h.status.Get(); ok {
		resp.Cluster = st.Config
	}
	h.writeJSONResponse(w, http.StatusOK, resp)
}

// ListNotifications handles GET /api/notifications requests.
func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, h.center.List())
}

// DismissNotification handles DELETE /api/notifications/{id} requests.
func (h *Handlers) DismissNotification(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.center.Dismiss(id) {
		h.errorHandler.WriteErrorResponse(w, http.StatusNotFound, apierrors.ErrorCodeNotFound,
			"notification not found", r.Header.Get("X-Request-ID"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProxyCluster handles GET /api/cluster/{path} requests by forwarding them through the
// interceptor chain.
func (h *Handlers) ProxyCluster(w http.ResponseWriter, r *http.Request) {
	path := "/" + mux.Vars(r)["path"]

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.client.Get(ctx, path, r.URL.Query())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	for _, name := range []string{"Content-Type", "Content-Disposition", interceptor.CacheHeader} {
		if v := resp.Header.Get(name); v != "" {
			w.Header().Set(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

type shellData struct {
	Lang          string
	Theme         string
	Version       string
	Revision      string
	Degraded      bool
	Reason        string
	WarningIcon   template.HTML
	Notifications []notify.Notification
	Overview      *cluster.Overview
	Addon         template.HTML
}

// Shell handles GET / requests with the dashboard shell page.
func (h *Handlers) Shell(w http.ResponseWriter, r *http.Request) {
	data := shellData{
		Lang:          h.providers.Locale().String(),
		Theme:         h.providers.Theme(),
		Notifications: h.center.List(),
	}
	data.Degraded, data.Reason = h.degraded()

	st, ok := h.status.Get()
	if ok && st.Config != nil {
		data.Version = st.Config.FlinkVersion
		data.Revision = st.Config.FlinkRevision
	}
	if svg, found := h.providers.Icons().SVG("warning"); found {
		data.WarningIcon = template.HTML(svg)
	}

	if ok && st.Reachable {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		ov, err := h.client.Overview(ctx, cluster.IgnoreError())
		cancel()
		if err != nil {
			h.logger.Debug("overview unavailable", zap.Error(err))
		} else {
			data.Overview = ov
		}
	}

	var addon bytes.Buffer
	if err := h.addon.Render(&addon, h.providers.Icons()); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	data.Addon = template.HTML(addon.String())

	var page bytes.Buffer
	if err := shellTemplate.Execute(&page, data); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(page.Bytes())
}

// Reload handles POST /ui/reload requests from the addon control.
func (h *Handlers) Reload(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	switch err := h.addon.Reload(); {
	case errors.Is(err, widget.ErrReloadInProgress):
		h.errorHandler.WriteErrorResponse(w, http.StatusConflict, apierrors.ErrorCodeInvalidRequest,
			err.Error(), requestID)
		return
	case err != nil:
		h.errorHandler.WriteErrorResponse(w, http.StatusNotImplemented, apierrors.ErrorCodeServiceDown,
			err.Error(), requestID)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// degraded reports whether the dashboard runs without a reachable cluster, and why.
func (h *Handlers) degraded() (bool, string) {
	if st, ok := h.status.Get(); ok {
		return !st.Reachable, st.Error
	}
	if outcome, ok := h.boot.Outcome(); ok && !outcome.Succeeded() {
		return true, outcome.Reason
	}
	return false, ""
}

func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
