// Package bundler combines an in-memory set of JavaScript modules into one
// script. A Bundler owns a file table and an entry path; every pass parses
// the modules reachable from the entry, orders them dependencies first,
// renames top-level bindings so they cannot collide and concatenates the
// result.
package bundler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/jsbundle/pkg/cache"
	"github.com/Sumatoshi-tech/jsbundle/pkg/emitter"
	"github.com/Sumatoshi-tech/jsbundle/pkg/filetable"
	"github.com/Sumatoshi-tech/jsbundle/pkg/jsparse"
	"github.com/Sumatoshi-tech/jsbundle/pkg/linker"
	"github.com/Sumatoshi-tech/jsbundle/pkg/modgraph"
	"github.com/Sumatoshi-tech/jsbundle/pkg/observability"
	"github.com/Sumatoshi-tech/jsbundle/pkg/resolve"
	"github.com/Sumatoshi-tech/jsbundle/pkg/toposort"
)

const tracerName = "jsbundle.bundler"

// Bundler bundles the files of one file table starting at one entry path.
// File updates may happen at any time; passes are serialized and each one
// works on a snapshot taken when it starts.
type Bundler struct {
	entry string
	files *filetable.Table

	// pass serializes Build calls.
	pass sync.Mutex

	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *observability.BundleMetrics
	resolveOpts resolve.Options
	cache       *cache.ParseCache
	checker     SyntaxChecker
}

// Result is everything a successful pass produced.
type Result struct {
	// Code is the bundle text.
	Code string

	// Order lists module paths in emission order.
	Order []string

	// Graph is the dependency graph the pass built.
	Graph *modgraph.Graph

	// Renames maps every top-level binding to its output identifier.
	Renames linker.RenameTable

	// Cycles holds the import edges that were skipped because they close a
	// cycle. The bundle is still produced.
	Cycles []toposort.Edge
}

// New creates a Bundler for entry with an empty file table.
func New(entry string, opts ...Option) *Bundler {
	b := &Bundler{
		entry:       entry,
		files:       filetable.New(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:      nooptrace.NewTracerProvider().Tracer(tracerName),
		resolveOpts: resolve.DefaultOptions(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Entry returns the entry path the bundler was created with.
func (b *Bundler) Entry() string {
	return b.entry
}

// AddFile inserts or overwrites path.
func (b *Bundler) AddFile(path, content string) {
	b.files.Save(path, content)
}

// UpdateFile is the same upsert as AddFile.
func (b *Bundler) UpdateFile(path, content string) {
	b.files.Save(path, content)
}

// RemoveFile deletes path and reports whether it was present.
func (b *Bundler) RemoveFile(path string) bool {
	if b.cache != nil {
		b.cache.Invalidate(path)
	}

	return b.files.Delete(path)
}

// Files returns the current file table keys, sorted.
func (b *Bundler) Files() []string {
	return b.files.Paths()
}

// Source returns the current content of path.
func (b *Bundler) Source(path string) (string, bool) {
	return b.files.Get(path)
}

// Bundle runs a pass and returns the bundle text.
func (b *Bundler) Bundle(ctx context.Context) (string, error) {
	res, err := b.Build(ctx)
	if err != nil {
		return "", err
	}

	return res.Code, nil
}

// Build runs a pass over a snapshot of the file table. On failure no
// partial output is returned.
func (b *Bundler) Build(ctx context.Context) (*Result, error) {
	b.pass.Lock()
	defer b.pass.Unlock()

	start := time.Now()

	ctx, span := b.tracer.Start(ctx, "jsbundle.bundle",
		trace.WithAttributes(attribute.String("bundle.entry", b.entry)))
	defer span.End()

	var before cache.Stats
	if b.cache != nil {
		before = b.cache.Stats()
	}

	res, err := b.run(ctx, b.files.Snapshot())

	stats := observability.BundleStats{Duration: time.Since(start)}

	if b.cache != nil {
		after := b.cache.Stats()
		stats.CacheHits = after.Hits - before.Hits
		stats.CacheMisses = after.Misses - before.Misses
	}

	if err != nil {
		kind := KindOf(err)
		stats.ErrorKind = string(kind)
		b.metrics.RecordBundle(ctx, stats)

		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		b.logger.DebugContext(ctx, "bundle failed", "entry", b.entry, "kind", kind, "error", err)

		return nil, fmt.Errorf("bundle %s: %w", b.entry, err)
	}

	stats.Modules = len(res.Order)
	stats.Bytes = len(res.Code)
	stats.CycleEdges = len(res.Cycles)
	b.metrics.RecordBundle(ctx, stats)

	span.SetAttributes(
		attribute.Int("bundle.modules", stats.Modules),
		attribute.Int("bundle.bytes", stats.Bytes),
	)

	return res, nil
}

func (b *Bundler) run(ctx context.Context, files *filetable.Table) (*Result, error) {
	graph, err := b.buildGraph(ctx, files)
	if err != nil {
		return nil, err
	}

	_, orderSpan := b.tracer.Start(ctx, "jsbundle.order")
	modules, cycles := graph.Order()
	orderSpan.End()

	for _, c := range cycles {
		b.logger.WarnContext(ctx, "import cycle; edge treated as satisfied",
			"importer", c.From, "imported", c.To,
			"cycle", strings.Join(graph.Dependencies().FindCycle(c), " -> "))
	}

	_, linkSpan := b.tracer.Start(ctx, "jsbundle.link")
	linked, err := linker.Link(modules, graph.Resolved)
	linkSpan.End()

	if err != nil {
		return nil, err
	}

	_, emitSpan := b.tracer.Start(ctx, "jsbundle.emit")
	code := emitter.Emit(linked.Units)
	emitSpan.End()

	order := make([]string, 0, len(modules))
	for _, m := range modules {
		order = append(order, m.Path)
	}

	return &Result{
		Code:    code,
		Order:   order,
		Graph:   graph,
		Renames: linked.Renames,
		Cycles:  cycles,
	}, nil
}

// buildGraph parses the reachable modules, through the cache and syntax
// checker when configured.
func (b *Bundler) buildGraph(ctx context.Context, files *filetable.Table) (*modgraph.Graph, error) {
	ctx, span := b.tracer.Start(ctx, "jsbundle.graph")
	defer span.End()

	parse := jsparse.Parse
	if b.cache != nil {
		parse = b.cache.Parse
	}

	if b.checker != nil {
		inner := parse
		parse = func(path, src string) (*jsparse.Module, error) {
			err := b.checker.Check(ctx, path, src)
			if err != nil {
				return nil, err
			}

			return inner(path, src)
		}
	}

	graph, err := modgraph.Build(ctx, files, b.entry, parse, resolve.New(files, b.resolveOpts))
	if err != nil {
		span.RecordError(err)

		return nil, err
	}

	span.SetAttributes(attribute.Int("module.count", len(graph.Modules)))

	return graph, nil
}
