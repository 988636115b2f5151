package main

import (
	"context"

	"github.com/devrev/flink-dashboard/internal/cluster"
	"github.com/devrev/flink-dashboard/internal/config"
	"github.com/devrev/flink-dashboard/internal/metrics"
	"github.com/devrev/flink-dashboard/internal/provider"
	"github.com/devrev/flink-dashboard/internal/status"
	"go.uber.org/zap"
)

// core is the wiring shared by every command: providers, the chained cluster client and the probe.
type core struct {
	slot      *status.Slot
	providers *provider.ProviderSet
	client    *cluster.Client
	probe     *status.Probe
}

// wireCore composes the startup dependencies. Provider assembly failures are fatal.
func wireCore(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *core {
	slot := status.NewSlot(m)

	providers, err := provider.Assemble(ctx, cfg, provider.Deps{
		Logger:  logger,
		Metrics: m,
		Tracker: slot,
	})
	if err != nil {
		logger.Fatal("failed to assemble providers", zap.Error(err))
	}

	client := cluster.NewClient(cluster.Config{
		Endpoint:   cfg.Cluster.Endpoint,
		StatusPath: cfg.Cluster.StatusPath,
		Timeout:    cfg.Cluster.RequestTimeout,
	}, providers.Transport(), logger.Named("cluster"))

	probe := status.NewProbe(client, slot, status.Options{
		BootTimeout:     cfg.Cluster.BootTimeout,
		RefreshInterval: cfg.Cluster.RefreshInterval,
		Recorder:        m,
	}, logger.Named("status"))

	return &core{
		slot:      slot,
		providers: providers,
		client:    client,
		probe:     probe,
	}
}

func (c *core) close(logger *zap.Logger) {
	c.probe.Close()
	if err := c.providers.Close(); err != nil {
		logger.Warn("failed to close providers", zap.Error(err))
	}
}
