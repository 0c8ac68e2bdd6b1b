package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ruben-marchisio/Cerebro/internal/appctl"
	"github.com/ruben-marchisio/Cerebro/internal/config"
	"github.com/ruben-marchisio/Cerebro/internal/files"
	"github.com/ruben-marchisio/Cerebro/internal/metrics"
	"github.com/ruben-marchisio/Cerebro/internal/observability"
	"github.com/ruben-marchisio/Cerebro/internal/sandbox"
	"github.com/ruben-marchisio/Cerebro/internal/workspace"
)

// sharedComponents holds the services both transports are built on.
type sharedComponents struct {
	Config    *config.Config
	Logger    *slog.Logger
	Workspace *workspace.Workspace
	Files     *files.Service
	Sandbox   *sandbox.Gateway
	Usage     *metrics.Log
	AppCtl    *appctl.Dispatcher
	Obs       *observability.Observability
}

// initShared resolves the workspace and wires every gateway service.
// logOutput is where structured logs go; the MCP transport owns stdout,
// so it must log to stderr.
func initShared(cfg *config.Config, logOutput *os.File) (*sharedComponents, error) {
	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))

	ws, err := workspace.New(workspace.Options{
		OrbitRoot:   cfg.Workspace.OrbitRoot,
		MetricsPath: cfg.Workspace.MetricsPath,
	})
	if err != nil {
		return nil, fmt.Errorf("resolving workspace: %w", err)
	}
	if _, err := ws.EnsureOrbit(); err != nil {
		return nil, err
	}

	obs, err := observability.New(cfg.Observability, logger)
	if err != nil {
		return nil, err
	}

	sb := sandbox.NewGateway(sandbox.Config{
		OrbitRoot:      ws.OrbitRoot,
		DefaultTimeout: time.Duration(cfg.Exec.DefaultTimeoutMs) * time.Millisecond,
		Metrics:        obs.MetricsCollectorOrNil(),
	}, logger)

	sc := &sharedComponents{
		Config:    cfg,
		Logger:    logger,
		Workspace: ws,
		Files:     files.NewService(ws.OrbitRoot, logger),
		Sandbox:   sb,
		Usage:     metrics.NewLog(ws.MetricsPath, logger),
		AppCtl:    appctl.NewDispatcher(appctl.NoopController{Logger: logger}, logger),
		Obs:       obs,
	}

	if obs != nil && obs.Health != nil {
		sc.registerHealthChecks()
	}

	logger.Info("gateway services initialized",
		slog.String("orbit_root", ws.OrbitRoot),
		slog.String("metrics_path", ws.MetricsPath),
	)
	return sc, nil
}

// registerHealthChecks wires readiness probes for the two on-disk
// dependencies: the orbit root and the metrics log directory.
func (sc *sharedComponents) registerHealthChecks() {
	sc.Obs.Health.AddCheck("orbit_root", func(_ context.Context) error {
		if !sc.Workspace.OrbitExists() {
			return fmt.Errorf("orbit root %s does not exist", sc.Workspace.OrbitRoot)
		}
		return nil
	})
	sc.Obs.Health.AddCheck("metrics_log", func(_ context.Context) error {
		_, err := sc.Workspace.EnsureMetricsDir()
		return err
	})
}

// Cleanup releases shared resources.
func (sc *sharedComponents) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sc.Obs.Shutdown(ctx)
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
