package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/jsbundle/pkg/observability"
)

func TestInitNoopWhenNoEndpoint(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	assert.Nil(t, providers.MetricsHandler)

	_, span := providers.Tracer.Start(context.Background(), "op")
	span.End()

	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitPrometheusHandler(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.Prometheus = true
	cfg.Mode = observability.ModeServe

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	require.NotNil(t, providers.MetricsHandler)

	red, err := observability.NewREDMetrics(providers.Meter)
	require.NoError(t, err)
	red.RecordRequest(context.Background(), "bundle", observability.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	providers.MetricsHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jsbundle_requests_total")
}

func TestNewLoggerAddsServiceAttributes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.Environment = "test"
	cfg.Mode = observability.ModeLSP

	observability.NewLogger(&buf, cfg).WithGroup("g").Info("hello", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "jsbundle", rec["service"])
	assert.Equal(t, "lsp", rec["mode"])
	assert.Equal(t, "test", rec["env"])
	assert.Equal(t, map[string]any{"k": "v"}, rec["g"])
}

func TestTracingHandlerInjectsSpanContext(t *testing.T) {
	t.Parallel()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer

	handler := observability.NewTracingHandler(slog.NewJSONHandler(&buf, nil), "svc", "", observability.ModeCLI)
	slog.New(handler).InfoContext(ctx, "with span")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, span.SpanContext().TraceID().String(), rec["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), rec["span_id"])
	assert.NotContains(t, rec, "env")
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}

	return out
}

func TestREDMetricsObserve(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	require.NoError(t, red.Observe(context.Background(), "bundle", func() error { return nil }))
	require.Error(t, red.Observe(context.Background(), "bundle", func() error { return errors.New("boom") }))

	metrics := collect(t, reader)

	requests, ok := metrics["jsbundle.requests.total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range requests.DataPoints {
		total += dp.Value
	}

	assert.Equal(t, int64(2), total)

	errs, ok := metrics["jsbundle.errors.total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, errs.DataPoints, 1)
	assert.Equal(t, int64(1), errs.DataPoints[0].Value)
}

func TestREDMetricsNilObserve(t *testing.T) {
	t.Parallel()

	var red *observability.REDMetrics

	called := false
	require.NoError(t, red.Observe(context.Background(), "op", func() error {
		called = true

		return nil
	}))
	assert.True(t, called)
}

func TestBundleMetricsRecord(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	bm, err := observability.NewBundleMetrics(mp.Meter("test"))
	require.NoError(t, err)

	bm.RecordBundle(context.Background(), observability.BundleStats{
		Duration: 3 * time.Millisecond, Modules: 4, Bytes: 120, CycleEdges: 1, CacheHits: 2, CacheMisses: 2,
	})
	bm.RecordBundle(context.Background(), observability.BundleStats{ErrorKind: "resolution"})

	metrics := collect(t, reader)

	modules, ok := metrics["jsbundle.bundle.modules"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, modules.DataPoints, 1)
	assert.Equal(t, uint64(1), modules.DataPoints[0].Count)
	assert.Equal(t, int64(4), modules.DataPoints[0].Sum)

	bundles, ok := metrics["jsbundle.bundles.total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, bundles.DataPoints, 2)

	var nilMetrics *observability.BundleMetrics
	nilMetrics.RecordBundle(context.Background(), observability.BundleStats{})
}

func TestHTTPMiddlewareCreatesSpan(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	handler := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusInternalServerError)
	})

	rec := httptest.NewRecorder()
	observability.HTTPMiddleware(tp.Tracer("test"), handler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/bundle", http.NoBody))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /v1/bundle", spans[0].Name)
	assert.Equal(t, "Error", spans[0].Status.Code.String())
	assert.Contains(t, spans[0].Attributes, attribute.Int("http.response.status_code", http.StatusInternalServerError))
}

func TestHealthHandlers(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	observability.HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	failing := func(context.Context) error { return errors.New("draining") }

	rec = httptest.NewRecorder()
	observability.ReadyHandler(failing).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","reason":"draining"}`, rec.Body.String())
}

func TestAttributeFilterStripsUnknownKeys(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	filter := observability.NewAttributeFilter(sdktrace.NewSimpleSpanProcessor(exporter), slog.New(slog.NewTextHandler(io.Discard, nil)))
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(filter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.SetAttributes(
		attribute.String("bundle.entry", "main.js"),
		attribute.String("url.path", "/v1/bundle"),
		attribute.String("user.email", "x@example.com"),
		attribute.String("file.content", "secret"),
		attribute.String("random", "v"),
	)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, []attribute.KeyValue{
		attribute.String("bundle.entry", "main.js"),
		attribute.String("url.path", "/v1/bundle"),
	}, spans[0].Attributes)
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	assert.Nil(t, observability.ParseOTLPHeaders(""))
	assert.Nil(t, observability.ParseOTLPHeaders("garbage"))
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, observability.ParseOTLPHeaders(" a = 1 , b=2"))
}

func TestSamplerSelection(t *testing.T) {
	t.Parallel()

	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}

	debug := observability.DefaultConfig()
	debug.DebugTrace = true

	ratio := observability.DefaultConfig()
	ratio.SampleRatio = 0.25

	assert.Equal(t, "AlwaysOnSampler", observability.Sampler(debug, env(nil)).Description())
	assert.Equal(t, "AlwaysOffSampler",
		observability.Sampler(ratio, env(map[string]string{"OTEL_TRACES_SAMPLER": "always_off"})).Description())
	assert.Equal(t, "TraceIDRatioBased{0.5}", observability.Sampler(ratio, env(map[string]string{
		"OTEL_TRACES_SAMPLER":     "traceidratio",
		"OTEL_TRACES_SAMPLER_ARG": "0.5",
	})).Description())
	assert.Contains(t, observability.Sampler(ratio, env(nil)).Description(), "TraceIDRatioBased{0.25}")
}
