// Package server serves bundling over HTTP.
//
//	POST /v1/bundle  manifest in, bundler.Report out
//	POST /v1/graph   manifest in, bundler.GraphReport (or Graphviz) out
//	GET  /healthz    liveness
//	GET  /readyz     readiness
//	GET  /metrics    Prometheus exposition, when enabled
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/jsbundle/pkg/bundler"
	"github.com/Sumatoshi-tech/jsbundle/pkg/cache"
	"github.com/Sumatoshi-tech/jsbundle/pkg/loader"
	"github.com/Sumatoshi-tech/jsbundle/pkg/observability"
	"github.com/Sumatoshi-tech/jsbundle/pkg/resolve"
	"github.com/Sumatoshi-tech/jsbundle/pkg/syntaxcheck"
)

// KindInvalidRequest marks requests rejected before bundling.
const KindInvalidRequest bundler.Kind = "invalid_request"

// DefaultMaxRequestBytes bounds request bodies when Deps leaves it unset (16 MB).
const DefaultMaxRequestBytes = 16 << 20

const (
	contentTypeJSON = "application/json"
	contentTypeJS   = "text/javascript; charset=utf-8"
	contentTypeDot  = "text/vnd.graphviz; charset=utf-8"
)

// Deps holds injectable dependencies. Zero-value fields use defaults.
type Deps struct {
	Logger         *slog.Logger
	Tracer         trace.Tracer
	Metrics        *observability.REDMetrics
	BundleMetrics  *observability.BundleMetrics
	MetricsHandler http.Handler
	Cache          *cache.ParseCache
	Resolve        resolve.Options

	// MaxRequestBytes bounds request bodies.
	MaxRequestBytes int64
}

// Server is the HTTP front end.
type Server struct {
	deps    Deps
	checker *syntaxcheck.Checker
	handler http.Handler
}

// New builds the route table.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}

	if deps.Tracer == nil {
		deps.Tracer = nooptrace.NewTracerProvider().Tracer("jsbundle.server")
	}

	if deps.MaxRequestBytes <= 0 {
		deps.MaxRequestBytes = DefaultMaxRequestBytes
	}

	if len(deps.Resolve.Extensions) == 0 && len(deps.Resolve.IndexFiles) == 0 {
		deps.Resolve = resolve.DefaultOptions()
	}

	srv := &Server{deps: deps, checker: syntaxcheck.New()}

	api := http.NewServeMux()
	api.HandleFunc("POST /v1/bundle", srv.handleBundle)
	api.HandleFunc("POST /v1/graph", srv.handleGraph)

	mux := http.NewServeMux()
	mux.Handle("/v1/", observability.HTTPMiddleware(deps.Tracer, api))
	mux.Handle("GET /healthz", observability.HealthHandler())
	mux.Handle("GET /readyz", observability.ReadyHandler())

	if deps.MetricsHandler != nil {
		mux.Handle("GET /metrics", deps.MetricsHandler)
	}

	srv.handler = mux

	return srv
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenOptions configures Serve.
type ListenOptions struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Serve listens on opts.Addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, opts ListenOptions) error {
	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", opts.Addr, err)
	}

	return s.ServeListener(ctx, ln, opts)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener, opts ListenOptions) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	s.deps.Logger.InfoContext(ctx, "listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.ShutdownTimeout)
	defer cancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	serveErr := <-errCh
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", serveErr)
	}

	return nil
}

func (s *Server) handleBundle(rw http.ResponseWriter, hr *http.Request) {
	res, status, err := s.build(hr, "bundle")
	if err != nil {
		writeJSON(hr.Context(), rw, status, bundler.Report{Error: errorReport(err, status)})

		return
	}

	if hr.URL.Query().Get("format") == "js" {
		rw.Header().Set("Content-Type", contentTypeJS)
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte(res.Code))

		return
	}

	writeJSON(hr.Context(), rw, http.StatusOK, bundler.NewReport(res, nil))
}

func (s *Server) handleGraph(rw http.ResponseWriter, hr *http.Request) {
	res, status, err := s.build(hr, "graph")
	if err != nil {
		writeJSON(hr.Context(), rw, status, bundler.Report{Error: errorReport(err, status)})

		return
	}

	if hr.URL.Query().Get("format") == "dot" {
		rw.Header().Set("Content-Type", contentTypeDot)
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte(bundler.Dot(res)))

		return
	}

	writeJSON(hr.Context(), rw, http.StatusOK, bundler.NewGraphReport(res))
}

// errRequest wraps failures that happen before bundling.
var errRequest = errors.New("invalid request")

// build decodes the manifest and runs one pass over it. The returned status
// applies when err is non-nil.
func (s *Server) build(hr *http.Request, op string) (*bundler.Result, int, error) {
	ctx := hr.Context()

	var (
		res    *bundler.Result
		status = http.StatusOK
	)

	err := s.deps.Metrics.Observe(ctx, "http."+op, func() error {
		m, err := loader.ReadManifest(http.MaxBytesReader(nil, hr.Body, s.deps.MaxRequestBytes))
		if err != nil {
			status = http.StatusBadRequest

			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}

			return fmt.Errorf("%w: %w", errRequest, err)
		}

		strict, _ := strconv.ParseBool(hr.URL.Query().Get("strict"))

		b := bundler.New(m.Entry, s.bundlerOptions(strict)...)
		for path, src := range m.Files {
			b.AddFile(path, src)
		}

		res, err = b.Build(ctx)
		if err != nil {
			status = http.StatusUnprocessableEntity

			return err
		}

		return nil
	})

	return res, status, err
}

func (s *Server) bundlerOptions(strict bool) []bundler.Option {
	opts := []bundler.Option{
		bundler.WithLogger(s.deps.Logger),
		bundler.WithTracer(s.deps.Tracer),
		bundler.WithMetrics(s.deps.BundleMetrics),
		bundler.WithResolveOptions(s.deps.Resolve),
	}

	if s.deps.Cache != nil {
		opts = append(opts, bundler.WithParseCache(s.deps.Cache))
	}

	if strict {
		opts = append(opts, bundler.WithSyntaxChecker(s.checker))
	}

	return opts
}

func errorReport(err error, status int) *bundler.ErrorReport {
	if errors.Is(err, errRequest) || status == http.StatusBadRequest || status == http.StatusRequestEntityTooLarge {
		return &bundler.ErrorReport{Kind: KindInvalidRequest, Message: err.Error()}
	}

	return bundler.NewErrorReport(err)
}

// writeJSON encodes the given value as JSON and writes it to the response writer.
func writeJSON(ctx context.Context, rw http.ResponseWriter, status int, value any) {
	rw.Header().Set("Content-Type", contentTypeJSON)
	rw.WriteHeader(status)

	encodeErr := json.NewEncoder(rw).Encode(value)
	if encodeErr != nil {
		slog.Default().ErrorContext(ctx, "failed to encode JSON response", "error", encodeErr)
	}
}
