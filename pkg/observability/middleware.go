package observability

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// responseRecorder remembers the status and body size a handler wrote.
type responseRecorder struct {
	http.ResponseWriter

	status int
	size   int
}

func (rr *responseRecorder) WriteHeader(code int) {
	if rr.status == 0 {
		rr.status = code
	}

	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(buf []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}

	n, err := rr.ResponseWriter.Write(buf)
	rr.size += n

	return n, err //nolint:wrapcheck // transparent writer.
}

// HTTPMiddleware runs each request under a server span named
// "METHOD /path". Incoming W3C trace context becomes the parent. 5xx
// answers mark the span as failed.
func HTTPMiddleware(tracer trace.Tracer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		parent := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))

		ctx, span := tracer.Start(parent, req.Method+" "+req.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(req.Method),
				semconv.URLPath(req.URL.Path),
			),
		)
		defer span.End()

		rec := &responseRecorder{ResponseWriter: rw}
		next.ServeHTTP(rec, req.WithContext(ctx))

		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		span.SetAttributes(
			semconv.HTTPResponseStatusCode(rec.status),
			semconv.HTTPResponseBodySize(rec.size),
		)

		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
	})
}
