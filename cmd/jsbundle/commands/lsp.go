package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/jsbundle/pkg/bundler"
	"github.com/Sumatoshi-tech/jsbundle/pkg/cache"
	"github.com/Sumatoshi-tech/jsbundle/pkg/loader"
	"github.com/Sumatoshi-tech/jsbundle/pkg/lsp"
	"github.com/Sumatoshi-tech/jsbundle/pkg/observability"
	"github.com/Sumatoshi-tech/jsbundle/pkg/syntaxcheck"
)

// NewLSPCommand creates the language server command.
func NewLSPCommand() *cobra.Command {
	var entry string

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start a language server that reports bundle errors as diagnostics",
		Long: `Start a Language Server Protocol server on stdio. The workspace is bundled
after every edit; parse, resolution and missing-export errors are published as
diagnostics and import cycles as warnings. Hovering a top-level name shows the
identifier it is emitted as.

Clients may pass {"entry": "src/main.js"} as initialization options.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if entry != "" {
				cfg.Bundle.Entry = entry
			}

			providers, err := initObservability(cfg, observability.ModeLSP)
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			opts := []bundler.Option{
				bundler.WithLogger(providers.Logger),
				bundler.WithTracer(providers.Tracer),
				bundler.WithResolveOptions(cfg.ResolveOptions()),
			}

			if cfg.Cache.Enabled {
				opts = append(opts, bundler.WithParseCache(cache.NewParseCache(cfg.CacheBytes())))
			}

			if cfg.Bundle.Strict {
				opts = append(opts, bundler.WithSyntaxChecker(syntaxcheck.New()))
			}

			return lsp.NewServer(lsp.Options{
				Entry:  cfg.Bundle.Entry,
				Logger: providers.Logger,
				Loader: loader.Options{
					MaxFileSize:   cfg.MaxFileSizeBytes(),
					IncludeVendor: cfg.Bundle.IncludeVendor,
				},
				Bundler: opts,
			}).Run()
		},
	}

	cmd.Flags().StringVarP(&entry, "entry", "e", "", "entry module key (default from config, main.js)")

	return cmd
}
