package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// TracingHandler decorates slog records with the trace_id and span_id of
// the span active in the record's context.
type TracingHandler struct {
	slog.Handler
}

// NewTracingHandler wraps inner. The service, mode and (when set) env
// attributes are bound before any group so they stay at the top level.
func NewTracingHandler(inner slog.Handler, service, env string, mode AppMode) *TracingHandler {
	bound := []slog.Attr{slog.String("service", service), slog.String("mode", string(mode))}
	if env != "" {
		bound = append(bound, slog.String("env", env))
	}

	return &TracingHandler{Handler: inner.WithAttrs(bound)}
}

// Handle adds the span identifiers, if any, and forwards the record.
func (h *TracingHandler) Handle(ctx context.Context, rec slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		rec.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return h.Handler.Handle(ctx, rec) //nolint:wrapcheck // handler chain.
}

// WithAttrs keeps the decoration on derived handlers.
func (h *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup keeps the decoration on derived handlers.
func (h *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{Handler: h.Handler.WithGroup(name)}
}

// NewLogger builds the logger Init installs, writing text or JSON to w.
func NewLogger(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var inner slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(w, opts)
	}

	return slog.New(NewTracingHandler(inner, cfg.ServiceName, cfg.Environment, cfg.Mode))
}
