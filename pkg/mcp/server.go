// Package mcp exposes the bundler as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/jsbundle/pkg/cache"
	"github.com/Sumatoshi-tech/jsbundle/pkg/observability"
	"github.com/Sumatoshi-tech/jsbundle/pkg/resolve"
	"github.com/Sumatoshi-tech/jsbundle/pkg/syntaxcheck"
	"github.com/Sumatoshi-tech/jsbundle/pkg/version"
)

// traceIDKey prefixes the trace reference appended to sampled results.
const traceIDKey = "trace_id"

// errToolResult marks a call that returned an IsError result, for metrics.
var errToolResult = errors.New("tool reported an error")

// ServerDeps holds the server's collaborators. Nil fields turn the
// matching feature off.
type ServerDeps struct {
	Logger        *slog.Logger
	Metrics       *observability.REDMetrics
	BundleMetrics *observability.BundleMetrics
	Tracer        trace.Tracer

	// Cache is shared by all tool calls.
	Cache *cache.ParseCache

	// Resolve overrides resolver settings. The zero value means
	// resolve.DefaultOptions.
	Resolve resolve.Options
}

// Server is an MCP server with the bundler tools registered.
type Server struct {
	inner   *mcpsdk.Server
	tools   []string
	deps    ServerDeps
	checker *syntaxcheck.Checker
}

// toolHandler is the typed handler shape the SDK accepts.
type toolHandler[In any] func(context.Context, *mcpsdk.CallToolRequest, In) (*mcpsdk.CallToolResult, ToolOutput, error)

// NewServer builds a server with every tool registered.
func NewServer(deps ServerDeps) *Server {
	if len(deps.Resolve.Extensions) == 0 && len(deps.Resolve.IndexFiles) == 0 {
		deps.Resolve = resolve.DefaultOptions()
	}

	s := &Server{
		inner: mcpsdk.NewServer(
			&mcpsdk.Implementation{Name: "jsbundle", Version: version.Version},
			&mcpsdk.ServerOptions{Logger: deps.Logger},
		),
		deps:    deps,
		checker: syntaxcheck.New(),
	}

	addTool[BundleInput](s, ToolNameBundle, bundleToolDescription, s.handleBundle)
	addTool[GraphInput](s, ToolNameGraph, graphToolDescription, s.handleGraph)

	return s
}

// ListToolNames returns the registered tool names, sorted.
func (s *Server) ListToolNames() []string {
	return slices.Sorted(slices.Values(s.tools))
}

// Run serves on stdio until ctx ends or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on transport until ctx ends or the connection
// closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func addTool[In any](s *Server, name, description string, handler toolHandler[In]) {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{Name: name, Description: description},
		mcpsdk.ToolHandlerFor[In, ToolOutput](instrument(s.deps.Tracer, s.deps.Metrics, name, handler)))

	s.tools = append(s.tools, name)
}

// instrument runs every call in a server span named "mcp.<tool>" and
// records it as RED operation "mcp.<tool>". Sampled results get a
// trace_id content block so callers can find the trace.
func instrument[In any](tracer trace.Tracer, metrics *observability.REDMetrics, name string, next toolHandler[In]) toolHandler[In] {
	op := "mcp." + name

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, in In) (*mcpsdk.CallToolResult, ToolOutput, error) {
		var span trace.Span
		if tracer != nil {
			ctx, span = tracer.Start(ctx, op,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attribute.String("mcp.tool", name)),
			)
			defer span.End()
		}

		var (
			result *mcpsdk.CallToolResult
			out    ToolOutput
			err    error
		)

		_ = metrics.Observe(ctx, op, func() error {
			result, out, err = next(ctx, req, in)
			if err == nil && result != nil && result.IsError {
				return errToolResult
			}

			return err
		})

		if span != nil && span.SpanContext().IsSampled() && result != nil {
			result.Content = append(result.Content, &mcpsdk.TextContent{
				Text: traceIDKey + "=" + span.SpanContext().TraceID().String(),
			})
		}

		return result, out, err
	}
}

const (
	bundleToolDescription = "Bundle an in-memory set of JavaScript ES modules into one script. " +
		"Accepts an entry path and a map of file paths to source text. " +
		"Returns the bundle and the module order, or a classified error with its position."

	graphToolDescription = "Describe the module graph reachable from an entry: " +
		"emission order, imports, importers, exports and import cycles."
)
