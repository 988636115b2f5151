package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/devrev/flink-dashboard/internal/bootstrap"
	"github.com/devrev/flink-dashboard/internal/config"
	apierrors "github.com/devrev/flink-dashboard/internal/errors"
	"github.com/devrev/flink-dashboard/internal/handler"
	"github.com/devrev/flink-dashboard/internal/metrics"
	"github.com/devrev/flink-dashboard/internal/server"
	"github.com/devrev/flink-dashboard/internal/widget"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard gateway",
	Long: `Starts the HTTP server, probes the cluster status once and mounts the dashboard routes
when the probe resolves. Until then every routed path answers 503 INITIALIZING.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := initLogger(cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync()

	logger.Info("starting dashboard gateway",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("cluster_endpoint", cfg.Cluster.Endpoint),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize metrics
	m := metrics.NewMetrics()
	m.SetHealthStatus(false)

	c := wireCore(ctx, cfg, m, logger)
	defer c.close(logger)

	errorHandler := apierrors.NewHandler(logger)
	handlers := handler.NewHandlers(handler.Deps{
		Client:       c.client,
		Status:       c.slot,
		Boot:         c.probe,
		Refresher:    c.probe,
		Providers:    c.providers,
		Addon:        widget.NewAddonCompact("jobmanager.log", cfg.Web.LogDownload),
		ErrorHandler: errorHandler,
		Logger:       logger.Named("handler"),
		Timeout:      cfg.Cluster.RequestTimeout,
	})

	httpServer := server.NewServer(cfg, handlers, c.slot, c.providers.Cache(), m, logger)
	orchestrator := bootstrap.New(c.probe, httpServer, logger.Named("bootstrap"))

	var metricsServer *metrics.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, logger)
	}

	g, gctx := errgroup.WithContext(ctx)

	// The listener comes up first so that health checks answer while the probe runs.
	g.Go(httpServer.Start)

	if metricsServer != nil {
		g.Go(metricsServer.Start)
	}

	g.Go(func() error {
		if _, err := orchestrator.Run(gctx); err != nil {
			if gctx.Err() != nil {
				return nil
			}
			return err
		}
		c.probe.Watch(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		// Graceful shutdown
		logger.Info("initiating graceful shutdown")
		m.SetHealthStatus(false)
		c.probe.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown HTTP server: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("failed to shutdown metrics server: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		logger.Error("dashboard gateway stopped with error", zap.Error(err))
		return err
	}

	logger.Info("dashboard gateway shutdown complete")
	return nil
}
