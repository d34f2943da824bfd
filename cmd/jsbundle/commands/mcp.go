package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/jsbundle/pkg/cache"
	"github.com/Sumatoshi-tech/jsbundle/pkg/mcp"
	"github.com/Sumatoshi-tech/jsbundle/pkg/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

Tools:
  - jsbundle_bundle: bundle an entry and a map of files into one script
  - jsbundle_graph:  describe the module graph reachable from an entry`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			cfg.Logging.Format = "json"
			if debug {
				cfg.Logging.Level = slog.LevelDebug.String()
				cfg.Telemetry.DebugTrace = true
			}

			providers, err := initObservability(cfg, observability.ModeMCP)
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

			deps := mcp.ServerDeps{
				Logger:        providers.Logger,
				Metrics:       red,
				BundleMetrics: bundleMetrics,
				Tracer:        providers.Tracer,
				Resolve:       cfg.ResolveOptions(),
			}

			if cfg.Cache.Enabled {
				deps.Cache = cache.NewParseCache(cfg.CacheBytes())
			}

			return mcp.NewServer(deps).Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}
