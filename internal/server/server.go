// Package server provides the HTTP server implementation for the dashboard gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/devrev/flink-dashboard/internal/config"
	apierrors "github.com/devrev/flink-dashboard/internal/errors"
	"github.com/devrev/flink-dashboard/internal/handler"
	"github.com/devrev/flink-dashboard/internal/health"
	"github.com/devrev/flink-dashboard/internal/metrics"
	"github.com/devrev/flink-dashboard/internal/middleware"
	"github.com/devrev/flink-dashboard/internal/model"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ErrAlreadyActive is returned when Activate is called a second time.
var ErrAlreadyActive = errors.New("routes already active")

// Server represents the HTTP server. Only /health and /ready answer until Activate mounts the
// dashboard routes; everything else gets 503 INITIALIZING.
type Server struct {
	router       *mux.Router
	routes       atomic.Pointer[mux.Router]
	active       atomic.Bool
	httpServer   *http.Server
	handlers     *handler.Handlers
	healthCheck  *health.HealthCheck
	errorHandler *apierrors.Handler
	metrics      *metrics.Metrics
	logger       *zap.Logger
	cfg          *config.Config
}

// NewServer creates a new HTTP server. cache and m may be nil.
func NewServer(cfg *config.Config, handlers *handler.Handlers, status health.StatusSource, cache health.Pinger, m *metrics.Metrics, logger *zap.Logger) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		handlers:     handlers,
		errorHandler: apierrors.NewHandler(logger),
		metrics:      m,
		logger:       logger,
		cfg:          cfg,
	}

	var recorder health.HealthRecorder
	if m != nil {
		recorder = m
	}
	s.healthCheck = health.NewHealthCheck(status, s.Active, cache, recorder, logger)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	middlewareChain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger),
	}
	if s.metrics != nil {
		middlewareChain = append(middlewareChain, metrics.MetricsMiddleware(s.metrics, s.routeLabel))
	}
	middlewareChain = append(middlewareChain, middleware.Gate(s.Active, s.errorHandler, "/health", "/ready"))

	chain := middleware.Chain(middlewareChain...)
	s.router.Use(func(next http.Handler) http.Handler {
		return chain(next)
	})

	// Health check endpoints
	s.router.HandleFunc("/health", s.healthCheck.LivenessHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.healthCheck.ReadinessHandler).Methods(http.MethodGet)

	// Everything else is served by the routes mounted on activation.
	s.router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		routes := s.routes.Load()
		if routes == nil {
			s.errorHandler.WriteServiceUnavailable(w, apierrors.ErrorCodeInitializing,
				"dashboard is initializing", r.Header.Get(middleware.RequestIDHeader))
			return
		}
		routes.ServeHTTP(w, r)
	})
}

// Activate mounts the dashboard routes and opens the gate. A failed outcome still activates: the
// dashboard serves in degraded mode.
func (s *Server) Activate(outcome model.BootOutcome) error {
	routes := mux.NewRouter()

	routes.HandleFunc("/", s.handlers.Shell).Methods(http.MethodGet)
	routes.HandleFunc("/ui/reload", s.handlers.Reload).Methods(http.MethodPost)

	api := routes.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handlers.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/config", s.handlers.GetConfig).Methods(http.MethodGet)
	api.HandleFunc("/notifications", s.handlers.ListNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}", s.handlers.DismissNotification).Methods(http.MethodDelete)
	api.HandleFunc("/cluster/{path:.*}", s.handlers.ProxyCluster).Methods(http.MethodGet)

	// Not found handler
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(middleware.RequestIDHeader)
		s.errorHandler.WriteErrorResponse(w, http.StatusNotFound, apierrors.ErrorCodeNotFound, "endpoint not found", requestID)
	})

	// Method not allowed handler
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(middleware.RequestIDHeader)
		s.errorHandler.WriteErrorResponse(w, http.StatusMethodNotAllowed, apierrors.ErrorCodeInvalidRequest, "method not allowed", requestID)
	})

	// Subrouters do not inherit these from the parent.
	for _, r := range []*mux.Router{routes, api} {
		r.NotFoundHandler = notFound
		r.MethodNotAllowedHandler = methodNotAllowed
	}

	if !s.routes.CompareAndSwap(nil, routes) {
		return ErrAlreadyActive
	}
	s.active.Store(true)

	s.logger.Info("dashboard routes active",
		zap.Bool("degraded", !outcome.Succeeded()),
		zap.String("reason", outcome.Reason),
	)
	return nil
}

// Active reports whether the dashboard routes are mounted.
func (s *Server) Active() bool {
	return s.active.Load()
}

// routeLabel resolves the metrics label of a request to its route template.
func (s *Server) routeLabel(r *http.Request) string {
	if r.URL.Path == "/health" || r.URL.Path == "/ready" {
		return r.URL.Path
	}
	routes := s.routes.Load()
	if routes == nil {
		return "gated"
	}
	var match mux.RouteMatch
	if routes.Match(r, &match) && match.Route != nil {
		if tpl, err := match.Route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server",
		zap.Int("port", s.cfg.Server.Port),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Serve serves on an existing listener.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("starting HTTP server", zap.String("addr", l.Addr().String()))

	if err := s.httpServer.Serve(l); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}
