package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/jsbundle/pkg/cache"
	"github.com/Sumatoshi-tech/jsbundle/pkg/observability"
	"github.com/Sumatoshi-tech/jsbundle/pkg/server"
)

// NewServeCommand creates the serve subcommand.
func NewServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve bundling over HTTP",
		Long: `Serve starts an HTTP server:

  POST /v1/bundle   JSON manifest in, bundle report out (?format=js for raw code, ?strict=true)
  POST /v1/graph    JSON manifest in, graph report out (?format=dot for Graphviz)
  GET  /healthz     liveness
  GET  /readyz      readiness
  GET  /metrics     Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")

	return cmd
}

func runServe(cmd *cobra.Command, addr string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if addr != "" {
		cfg.Server.Addr = addr
	}

	providers, err := initObservability(cfg, observability.ModeServe)
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("red metrics: %w", err)
	}

	bundleMetrics, err := observability.NewBundleMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("bundle metrics: %w", err)
	}

	deps := server.Deps{
		Logger:          providers.Logger,
		Tracer:          providers.Tracer,
		Metrics:         red,
		BundleMetrics:   bundleMetrics,
		MetricsHandler:  providers.MetricsHandler,
		Resolve:         cfg.ResolveOptions(),
		MaxRequestBytes: cfg.MaxRequestBytes(),
	}

	if cfg.Cache.Enabled {
		deps.Cache = cache.NewParseCache(cfg.CacheBytes())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.New(deps).Serve(ctx, server.ListenOptions{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
}
