package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const attrErrorKind = "error.kind"

var (
	moduleBuckets = []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}
	byteBuckets   = []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304}
)

// BundleMetrics holds instruments for bundle passes.
type BundleMetrics struct {
	passes      metric.Int64Counter
	duration    metric.Float64Histogram
	modules     metric.Int64Histogram
	size        metric.Int64Histogram
	cycleEdges  metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
}

// BundleStats describes one finished bundle pass.
type BundleStats struct {
	Duration    time.Duration
	Modules     int
	Bytes       int
	CycleEdges  int
	CacheHits   int64
	CacheMisses int64

	// ErrorKind is empty for a successful pass.
	ErrorKind string
}

// NewBundleMetrics registers the bundle instruments on mt.
func NewBundleMetrics(mt metric.Meter) (*BundleMetrics, error) {
	in := &instruments{meter: mt}

	bm := &BundleMetrics{
		passes:      in.counter("jsbundle.bundles.total", "Bundle passes by outcome", "{bundle}"),
		duration:    in.seconds("jsbundle.bundle.duration.seconds", "Bundle pass duration"),
		modules:     in.sizes("jsbundle.bundle.modules", "Modules included per bundle", "{module}", moduleBuckets),
		size:        in.sizes("jsbundle.bundle.bytes", "Size of emitted bundles", "By", byteBuckets),
		cycleEdges:  in.counter("jsbundle.bundle.cycle_edges.total", "Import edges skipped because they close a cycle", "{edge}"),
		cacheHits:   in.counter("jsbundle.parse_cache.hits.total", "Parse cache hits", "{hit}"),
		cacheMisses: in.counter("jsbundle.parse_cache.misses.total", "Parse cache misses", "{miss}"),
	}
	if in.err != nil {
		return nil, in.err
	}

	return bm, nil
}

// RecordBundle records one pass. A nil receiver records nothing.
func (bm *BundleMetrics) RecordBundle(ctx context.Context, stats BundleStats) {
	if bm == nil {
		return
	}

	status := attribute.String(attrStatus, StatusOK)
	if stats.ErrorKind != "" {
		status = attribute.String(attrStatus, StatusError)
	}

	bm.passes.Add(ctx, 1, metric.WithAttributes(status, attribute.String(attrErrorKind, stats.ErrorKind)))
	bm.duration.Record(ctx, stats.Duration.Seconds(), metric.WithAttributes(status))
	bm.cacheHits.Add(ctx, stats.CacheHits)
	bm.cacheMisses.Add(ctx, stats.CacheMisses)

	// Size instruments describe emitted bundles only.
	if stats.ErrorKind == "" {
		bm.modules.Record(ctx, int64(stats.Modules))
		bm.size.Record(ctx, int64(stats.Bytes))
		bm.cycleEdges.Add(ctx, int64(stats.CycleEdges))
	}
}
