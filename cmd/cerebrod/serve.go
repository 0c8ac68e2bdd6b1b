package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	goutils "github.com/jkaninda/go-utils"

	"github.com/ruben-marchisio/Cerebro/internal/config"
	"github.com/ruben-marchisio/Cerebro/internal/gateway/httpapi"
	"github.com/ruben-marchisio/Cerebro/internal/ratelimit"
)

var (
	serveConfigPath string
	serveListenAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	RunE:  runServe,
}

func init() {
	// Register flags on both root and serve so that
	// `cerebrod --config path` and `cerebrod serve --config path` both work.
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&serveConfigPath, "config", config.DefaultConfigPath(), "path to config file")
		cmd.Flags().StringVar(&serveListenAddr, "listen", "", "override HTTP listen address (e.g. 127.0.0.1:4517)")
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(goutils.Env("CEREBRO_CONFIG", serveConfigPath))
	if err != nil {
		return err
	}

	// The HTTP transport is the default mode; enable it unless the config
	// explicitly carries an HTTP section that disables it.
	if cfg.HTTP == nil {
		cfg.HTTP = &config.HTTPConfig{Enabled: true, ListenAddr: "127.0.0.1:4517"}
	}
	if !cfg.HTTP.Enabled {
		return errors.New("http gateway is disabled in the configuration")
	}
	if serveListenAddr != "" {
		cfg.HTTP.ListenAddr = serveListenAddr
	}

	sc, err := initShared(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer sc.Cleanup()

	var limiter *ratelimit.Limiter
	if cfg.HTTP.RequestsPerMinute > 0 {
		limiter = ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.HTTP.RequestsPerMinute,
		})
	}

	gwCfg := httpapi.Config{
		ListenAddr: cfg.HTTP.ListenAddr,
		EnableDocs: cfg.HTTP.EnableDocs,
		APIKeys:    cfg.HTTP.APIKeys,
	}
	if sc.Obs != nil {
		gwCfg.HealthChecker = sc.Obs.Health
		gwCfg.Metrics = sc.Obs.Metrics
		if sc.Obs.Metrics != nil {
			gwCfg.MetricsRegistry = sc.Obs.Metrics.Registry
			if cfg.Observability != nil && cfg.Observability.Metrics != nil {
				gwCfg.MetricsPath = cfg.Observability.Metrics.Path
			}
		}
		if sc.Obs.Tracer != nil {
			gwCfg.Tracer = sc.Obs.Tracer.Tracer()
		}
	}

	gw := httpapi.NewGateway(gwCfg, sc.Workspace, sc.Files, sc.Sandbox, sc.Usage, sc.AppCtl, limiter, sc.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- gw.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		sc.Logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := gw.Stop(shutdownCtx); err != nil {
			sc.Logger.Error("shutdown failed", slog.String("error", err.Error()))
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
