package main

import (
	"encoding/json"
	"fmt"

	"github.com/devrev/flink-dashboard/internal/config"
	"github.com/devrev/flink-dashboard/internal/metrics"
	"github.com/devrev/flink-dashboard/internal/model"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe the cluster status once and print the outcome",
	Long: `Runs the startup probe against the configured cluster through the same interceptor chain
the gateway uses, prints the outcome as JSON and exits non-zero when the probe fails.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusReport struct {
	Succeeded bool                `json:"succeeded"`
	Reason    string              `json:"reason,omitempty"`
	Error     string              `json:"error,omitempty"`
	Status    model.ClusterStatus `json:"status"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// stdout carries the report.
	logger := initLogger("warn", cfg.Logging.Format, "stderr")
	defer logger.Sync()

	c := wireCore(cmd.Context(), cfg, metrics.NewMetrics(), logger)
	defer c.close(logger)

	outcome := c.probe.Boot(cmd.Context())

	report := statusReport{
		Succeeded: outcome.Succeeded(),
		Reason:    outcome.Reason,
		Status:    outcome.Status,
	}
	if err := outcome.Error(); err != nil {
		report.Error = err.Error()
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}

	if !outcome.Succeeded() {
		return fmt.Errorf("cluster probe failed: %s", outcome.Reason)
	}
	return nil
}
