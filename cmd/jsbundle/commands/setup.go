// Package commands implements the jsbundle subcommands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/jsbundle/pkg/bundler"
	"github.com/Sumatoshi-tech/jsbundle/pkg/cache"
	"github.com/Sumatoshi-tech/jsbundle/pkg/config"
	"github.com/Sumatoshi-tech/jsbundle/pkg/loader"
	"github.com/Sumatoshi-tech/jsbundle/pkg/observability"
	"github.com/Sumatoshi-tech/jsbundle/pkg/syntaxcheck"
	"github.com/Sumatoshi-tech/jsbundle/pkg/version"
)

// ConfigFlag is the persistent flag naming the configuration file.
const ConfigFlag = "config"

// ErrBundleFailed is returned after a bundle error has been reported.
var ErrBundleFailed = errors.New("bundle failed")

const stdinName = "-"

// loadConfig reads the file named by --config, or the default locations.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(ConfigFlag)

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

// initObservability sets up telemetry for mode. Logs go to stderr so stdout
// stays clean for output.
func initObservability(cfg *config.Config, mode observability.AppMode) (observability.Providers, error) {
	providers, err := observability.Init(cfg.Observability(mode, version.Version))
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init observability: %w", err)
	}

	return providers, nil
}

// inputs collects the entry and files from a manifest or a directory.
// Flags win over the config file.
func inputs(cfg *config.Config, dir, manifestPath, entry string, stdin io.Reader) (string, map[string]string, error) {
	if manifestPath != "" {
		m, err := readManifest(manifestPath, stdin)
		if err != nil {
			return "", nil, err
		}

		if entry == "" {
			entry = m.Entry
		}

		return entry, m.Files, nil
	}

	if dir == "" {
		dir = "."
	}

	if entry == "" {
		entry = cfg.Bundle.Entry
	}

	files, err := loader.FromDir(dir, loader.Options{
		MaxFileSize:   cfg.MaxFileSizeBytes(),
		IncludeVendor: cfg.Bundle.IncludeVendor,
	})
	if err != nil {
		return "", nil, err
	}

	return entry, files, nil
}

func readManifest(path string, stdin io.Reader) (*loader.Manifest, error) {
	if path == stdinName {
		return loader.ReadManifest(stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	return loader.ReadManifest(f)
}

// newBundler builds a bundler over files with the configured options.
func newBundler(cfg *config.Config, providers observability.Providers, entry string, files map[string]string, strict bool) (*bundler.Bundler, error) {
	metrics, err := observability.NewBundleMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("bundle metrics: %w", err)
	}

	opts := []bundler.Option{
		bundler.WithLogger(providers.Logger),
		bundler.WithTracer(providers.Tracer),
		bundler.WithMetrics(metrics),
		bundler.WithResolveOptions(cfg.ResolveOptions()),
	}

	if cfg.Cache.Enabled {
		opts = append(opts, bundler.WithParseCache(cache.NewParseCache(cfg.CacheBytes())))
	}

	if strict || cfg.Bundle.Strict {
		opts = append(opts, bundler.WithSyntaxChecker(syntaxcheck.New()))
	}

	b := bundler.New(entry, opts...)
	for path, src := range files {
		b.AddFile(path, src)
	}

	return b, nil
}

// reportError prints a bundle failure the way compilers do:
// path:line:col: kind: message.
func reportError(w io.Writer, err error) {
	rep := bundler.NewErrorReport(err)

	loc := ""
	if rep.Path != "" {
		loc = fmt.Sprintf("%s:%d:%d: ", rep.Path, rep.Line, rep.Column)
	}

	color.New(color.FgRed, color.Bold).Fprint(w, "error")
	fmt.Fprintf(w, "[%s] %s%s\n", rep.Kind, loc, rep.Message)
}

// reportWarning prints a non-fatal diagnostic.
func reportWarning(w io.Writer, format string, args ...any) {
	color.New(color.FgYellow).Fprint(w, "warning")
	fmt.Fprintf(w, ": "+format+"\n", args...)
}
