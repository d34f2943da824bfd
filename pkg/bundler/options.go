package bundler

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/jsbundle/pkg/cache"
	"github.com/Sumatoshi-tech/jsbundle/pkg/observability"
	"github.com/Sumatoshi-tech/jsbundle/pkg/resolve"
)

// SyntaxChecker validates a file before it is parsed. It returns a
// *jsparse.ParseError for invalid input.
type SyntaxChecker interface {
	Check(ctx context.Context, path, src string) error
}

// Option configures a Bundler.
type Option func(*Bundler)

// WithLogger sets the logger for pass diagnostics such as import cycles.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bundler) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithTracer records a span per pass and per phase.
func WithTracer(tracer trace.Tracer) Option {
	return func(b *Bundler) {
		if tracer != nil {
			b.tracer = tracer
		}
	}
}

// WithMetrics records every pass into m.
func WithMetrics(m *observability.BundleMetrics) Option {
	return func(b *Bundler) {
		b.metrics = m
	}
}

// WithResolveOptions overrides the implied extensions and index files.
func WithResolveOptions(opts resolve.Options) Option {
	return func(b *Bundler) {
		b.resolveOpts = opts
	}
}

// WithParseCache reuses parsed modules whose content did not change. The
// cache may be shared between bundlers.
func WithParseCache(c *cache.ParseCache) Option {
	return func(b *Bundler) {
		b.cache = c
	}
}

// WithSyntaxChecker validates every reachable file with checker before it
// is parsed.
func WithSyntaxChecker(checker SyntaxChecker) Option {
	return func(b *Bundler) {
		b.checker = checker
	}
}
