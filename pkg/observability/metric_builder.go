package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// instruments creates OTel instruments and keeps the first error, so a
// constructor can build all of them and check once.
type instruments struct {
	meter metric.Meter
	err   error
}

func (in *instruments) counter(name, desc, unit string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.fail(name, err)

	return c
}

func (in *instruments) upDown(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.fail(name, err)

	return c
}

func (in *instruments) seconds(name, desc string) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	in.fail(name, err)

	return h
}

func (in *instruments) sizes(name, desc, unit string, bounds []float64) metric.Int64Histogram {
	h, err := in.meter.Int64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
		metric.WithExplicitBucketBoundaries(bounds...),
	)
	in.fail(name, err)

	return h
}

func (in *instruments) fail(name string, err error) {
	if err != nil && in.err == nil {
		in.err = fmt.Errorf("create %s: %w", name, err)
	}
}
