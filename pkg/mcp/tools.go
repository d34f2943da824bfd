package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/jsbundle/pkg/bundler"
)

// Tool name constants.
const (
	ToolNameBundle = "jsbundle_bundle"
	ToolNameGraph  = "jsbundle_graph"
)

// MaxInputBytes is the maximum total source size accepted per call (16 MB).
const MaxInputBytes = 16 << 20

// Sentinel errors for tool input validation.
var (
	// ErrEmptyEntry indicates the entry parameter is empty.
	ErrEmptyEntry = errors.New("entry parameter is required and must not be empty")
	// ErrNoFiles indicates the files parameter is empty.
	ErrNoFiles = errors.New("files parameter is required and must not be empty")
	// ErrInputTooLarge indicates the sources exceed MaxInputBytes.
	ErrInputTooLarge = errors.New("files exceed maximum size")
)

// BundleInput is the input schema for the jsbundle_bundle tool.
type BundleInput struct {
	Entry  string            `json:"entry"            jsonschema:"file table key of the entry module (e.g. main.js)"`
	Files  map[string]string `json:"files"            jsonschema:"map of file path to JavaScript source"`
	Strict bool              `json:"strict,omitempty" jsonschema:"also check every module with the tree-sitter JavaScript grammar"`
}

// GraphInput is the input schema for the jsbundle_graph tool.
type GraphInput struct {
	Entry string            `json:"entry" jsonschema:"file table key of the entry module (e.g. main.js)"`
	Files map[string]string `json:"files" jsonschema:"map of file path to JavaScript source"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleBundle(ctx context.Context, _ *mcpsdk.CallToolRequest, input BundleInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	res, err := s.build(ctx, input.Entry, input.Files, input.Strict)
	if err != nil {
		return reportResult(bundler.NewReport(nil, err))
	}

	return jsonResult(bundler.NewReport(res, nil))
}

func (s *Server) handleGraph(ctx context.Context, _ *mcpsdk.CallToolRequest, input GraphInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	res, err := s.build(ctx, input.Entry, input.Files, false)
	if err != nil {
		return reportResult(bundler.NewReport(nil, err))
	}

	return jsonResult(bundler.NewGraphReport(res))
}

// build runs one pass over a fresh file table.
func (s *Server) build(ctx context.Context, entry string, files map[string]string, strict bool) (*bundler.Result, error) {
	err := validateInput(entry, files)
	if err != nil {
		return nil, err
	}

	opts := []bundler.Option{
		bundler.WithMetrics(s.deps.BundleMetrics),
		bundler.WithResolveOptions(s.deps.Resolve),
	}

	if s.deps.Logger != nil {
		opts = append(opts, bundler.WithLogger(s.deps.Logger))
	}

	if s.deps.Tracer != nil {
		opts = append(opts, bundler.WithTracer(s.deps.Tracer))
	}

	if s.deps.Cache != nil {
		opts = append(opts, bundler.WithParseCache(s.deps.Cache))
	}

	if strict {
		opts = append(opts, bundler.WithSyntaxChecker(s.checker))
	}

	b := bundler.New(entry, opts...)
	for path, src := range files {
		b.AddFile(path, src)
	}

	return b.Build(ctx)
}

func validateInput(entry string, files map[string]string) error {
	if entry == "" {
		return ErrEmptyEntry
	}

	if len(files) == 0 {
		return ErrNoFiles
	}

	total := 0
	for _, src := range files {
		total += len(src)
	}

	if total > MaxInputBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, total, MaxInputBytes)
	}

	return nil
}

// reportResult returns a failed report as an error result.
func reportResult(rep bundler.Report) (*mcpsdk.CallToolResult, ToolOutput, error) {
	result, output, err := jsonResult(rep)
	if result != nil {
		result.IsError = true
	}

	return result, output, err
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
