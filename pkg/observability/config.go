// Package observability wires OpenTelemetry tracing and metrics and the
// slog logger used by every jsbundle host: CLI, HTTP server, MCP and LSP.
package observability

import "log/slog"

// AppMode names the host the binary runs as.
type AppMode string

// Host modes.
const (
	ModeCLI   AppMode = "cli"
	ModeServe AppMode = "serve"
	ModeMCP   AppMode = "mcp"

	// ModeLSP speaks the protocol on stdout, so logs go to stderr only.
	ModeLSP AppMode = "lsp"
)

const defaultShutdownSec = 5

// Config selects exporters, sampling and log output.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Mode           AppMode

	// OTLPEndpoint is a gRPC collector address such as "localhost:4317".
	// Empty keeps traces and OTLP metrics off.
	OTLPEndpoint string
	OTLPHeaders  map[string]string
	OTLPInsecure bool

	// DebugTrace samples everything and logs dropped span attributes.
	DebugTrace bool

	// SampleRatio applies to root spans. Zero samples everything.
	SampleRatio float64

	// Prometheus exposes metrics through Providers.MetricsHandler.
	Prometheus bool

	LogLevel slog.Level
	LogJSON  bool

	// ShutdownTimeoutSec bounds the final flush.
	ShutdownTimeoutSec int
}

// DefaultConfig is a quiet CLI setup: no exporters, info-level text logs.
func DefaultConfig() Config {
	return Config{
		ServiceName:        "jsbundle",
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownSec,
	}
}
