package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Request outcomes.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

const (
	attrOp     = "op"
	attrStatus = "status"
)

// durationBuckets spans 1ms to 30s. Bundling a few hundred modules stays
// well under a second.
var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// REDMetrics counts rate, errors and duration of host operations: HTTP
// requests, MCP tool calls and CLI commands.
type REDMetrics struct {
	requests metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
	inflight metric.Int64UpDownCounter
}

// NewREDMetrics registers the RED instruments on mt.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	in := &instruments{meter: mt}

	rm := &REDMetrics{
		requests: in.counter("jsbundle.requests.total", "Requests by operation and outcome", "{request}"),
		errors:   in.counter("jsbundle.errors.total", "Failed requests by operation", "{error}"),
		duration: in.seconds("jsbundle.request.duration.seconds", "Request duration"),
		inflight: in.upDown("jsbundle.inflight.requests", "Requests being served", "{request}"),
	}
	if in.err != nil {
		return nil, in.err
	}

	return rm, nil
}

// RecordRequest records one finished operation.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, took time.Duration) {
	opAttr := attribute.String(attrOp, op)
	both := metric.WithAttributes(opAttr, attribute.String(attrStatus, status))

	rm.requests.Add(ctx, 1, both)
	rm.duration.Record(ctx, took.Seconds(), both)

	if status == StatusError {
		rm.errors.Add(ctx, 1, metric.WithAttributes(opAttr))
	}
}

// Observe runs fn as operation op and records it. A nil receiver just
// runs fn.
func (rm *REDMetrics) Observe(ctx context.Context, op string, fn func() error) error {
	if rm == nil {
		return fn()
	}

	opAttr := metric.WithAttributes(attribute.String(attrOp, op))

	rm.inflight.Add(ctx, 1, opAttr)
	defer rm.inflight.Add(ctx, -1, opAttr)

	start := time.Now()
	err := fn()

	status := StatusOK
	if err != nil {
		status = StatusError
	}

	rm.RecordRequest(ctx, op, status, time.Since(start))

	return err
}
