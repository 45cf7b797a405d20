package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"harvest-hq/gateway/pkg/cli"
	"harvest-hq/gateway/pkg/config"
	"harvest-hq/gateway/pkg/history"
	"harvest-hq/gateway/pkg/history/recorder"
	"harvest-hq/gateway/pkg/history/retention"
	"harvest-hq/gateway/pkg/proxy/backend"
	"harvest-hq/gateway/pkg/proxy/forwarder"
	"harvest-hq/gateway/pkg/server"
	"harvest-hq/gateway/pkg/telemetry/health"
	"harvest-hq/gateway/pkg/telemetry/logging"
	"harvest-hq/gateway/pkg/telemetry/metrics"
	"harvest-hq/gateway/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway",
	Long: `Start the gateway with the specified configuration.

The gateway listens on the configured address, forwards chat requests to the
backend and records completed turns in the configured history store.

Examples:
  # Start with default config
  harvest run

  # Start with custom config
  harvest run --config /etc/harvest/config.yaml

  # Override listen address
  harvest run --listen 0.0.0.0:8080

  # Validate config without starting the server
  harvest run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	} else if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger.SetDefault()

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, cancel := cli.SetupSignalHandler()
	defer cancel()

	gw, err := newGateway(ctx, cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer gw.close()

	printBanner(cmd, cfg)

	if err := gw.server.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

// gateway holds every long-lived component started by run.
type gateway struct {
	store    history.Store
	recorder *recorder.Recorder
	pruner   *retention.Pruner
	client   *backend.Client
	tracer   *tracing.Tracer
	watcher  *config.Watcher
	server   *server.Server
}

func newGateway(ctx context.Context, cfg *config.Config, logger *logging.Logger) (gw *gateway, err error) {
	gw = &gateway{}
	defer func() {
		if err != nil {
			gw.close()
		}
	}()

	gw.tracer, err = tracing.New(ctx, cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)

	gw.store, err = history.Open(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	gw.recorder = recorder.New(gw.store, cfg.History.Recorder, collector)

	if cfg.History.Retention.Enabled {
		target, ok := gw.store.(history.Pruner)
		if !ok {
			slog.Warn("history backend does not support retention, pruning disabled",
				"backend", cfg.History.Backend)
		} else {
			gw.pruner = retention.NewPruner(target, cfg.History.Retention)
			if err := gw.pruner.Start(ctx); err != nil {
				return nil, fmt.Errorf("failed to start retention: %w", err)
			}
		}
	}

	gw.client, err = backend.New(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	fwd := forwarder.New(gw.client, gw.recorder, collector, forwarder.Config{
		TerminalReasons: cfg.History.TerminalReasons,
		BestEffortSync:  cfg.History.BestEffortSync,
	})

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("backend", health.BackendCheck(gw.client, collector.SetBackendHealthy))
	checker.RegisterCheck("history", health.StoreCheck(gw.store))

	if cfg.Reload.Enabled {
		gw.watcher, err = config.NewWatcher(cfgFile, cfg.Reload.Debounce, func(next *config.Config) {
			if err := logger.SetLevel(next.Telemetry.Logging.Level); err != nil {
				slog.Warn("ignoring reloaded log level", "error", err)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create config watcher: %w", err)
		}
		go func() {
			if err := gw.watcher.Watch(ctx); err != nil {
				slog.Error("config watcher stopped", "error", err)
			}
		}()
	}

	gw.server = server.NewServer(cfg, server.Dependencies{
		Forwarder: fwd,
		Store:     gw.store,
		Health:    checker,
		Metrics:   collector,
		Tracer:    gw.tracer,
		Version:   versionInfo(),
	})
	return gw, nil
}

// close releases components in reverse start order. Queued turns are
// written before the store closes.
func (gw *gateway) close() {
	if gw.watcher != nil {
		if err := gw.watcher.Stop(); err != nil {
			slog.Warn("failed to stop config watcher", "error", err)
		}
	}
	if gw.pruner != nil {
		gw.pruner.Stop()
	}
	if gw.recorder != nil {
		if err := gw.recorder.Close(); err != nil {
			slog.Error("failed to drain history recorder", "error", err)
		}
	}
	if gw.store != nil {
		if err := gw.store.Close(); err != nil {
			slog.Error("failed to close history store", "error", err)
		}
	}
	if gw.client != nil {
		h := gw.client.Health()
		slog.Info("backend client closed",
			"healthy", h.Healthy,
			"requests", h.TotalRequests,
			"failed_requests", h.FailedRequests,
		)
		gw.client.Close()
	}
	if gw.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := gw.tracer.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("failed to flush traces", "error", err)
		}
	}
}

func printBanner(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Harvest %s\n", Version)
	fmt.Fprintf(out, "  listen:  %s\n", cfg.Server.ListenAddress)
	fmt.Fprintf(out, "  backend: %s\n", cfg.Backend.BaseURL)
	fmt.Fprintf(out, "  history: %s\n", historyTarget(cfg.History))
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(out, "  metrics: %s\n", cfg.Telemetry.Metrics.Path)
	}
}

// historyTarget describes where turns are stored.
func historyTarget(h config.HistoryConfig) string {
	switch h.Backend {
	case history.BackendJSONL, "":
		return "jsonl " + h.JSONL.Path
	case history.BackendSQLite:
		return fmt.Sprintf("sqlite %s (driver %s)", h.SQLite.Path, h.SQLite.Driver)
	default:
		return h.Backend
	}
}
