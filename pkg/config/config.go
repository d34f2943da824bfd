// Package config loads jsbundle settings from .jsbundle.yaml and JSBUNDLE_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/jsbundle/pkg/loader"
	"github.com/Sumatoshi-tech/jsbundle/pkg/observability"
	"github.com/Sumatoshi-tech/jsbundle/pkg/resolve"
	"github.com/Sumatoshi-tech/jsbundle/pkg/safeconv"
)

// Sentinel validation errors.
var (
	ErrEmptyEntry         = errors.New("bundle entry must not be empty")
	ErrInvalidExtension   = errors.New("extension must start with a dot")
	ErrInvalidSize        = errors.New("invalid size")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("invalid log format")
	ErrEmptyAddr          = errors.New("server address must not be empty")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
)

const (
	configName = ".jsbundle"
	envPrefix  = "JSBUNDLE"
)

// Config holds all jsbundle settings.
type Config struct {
	Bundle    BundleConfig    `mapstructure:"bundle"`
	Server    ServerConfig    `mapstructure:"server"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// BundleConfig controls inputs and resolution.
type BundleConfig struct {
	Entry         string   `mapstructure:"entry"`
	Extensions    []string `mapstructure:"extensions"`
	IndexFiles    []string `mapstructure:"index_files"`
	MaxFileSize   string   `mapstructure:"max_file_size"`
	Strict        bool     `mapstructure:"strict"`
	IncludeVendor bool     `mapstructure:"include_vendor"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	MaxRequestSize  string        `mapstructure:"max_request_size"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CacheConfig controls the parse cache.
type CacheConfig struct {
	MaxSize string `mapstructure:"max_size"`
	Enabled bool   `mapstructure:"enabled"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	Environment  string  `mapstructure:"environment"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	DebugTrace   bool    `mapstructure:"debug_trace"`
}

// LoadConfig reads configPath, or .jsbundle.yaml from the working
// directory or $HOME when configPath is empty. A missing default file is
// not an error. Environment variables such as JSBUNDLE_BUNDLE_ENTRY
// override file values.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	readErr := v.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config file: %w", readErr)
		}
	}

	var cfg Config

	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bundle.entry", DefaultEntry)
	v.SetDefault("bundle.extensions", DefaultExtensions)
	v.SetDefault("bundle.index_files", DefaultIndexFiles)
	v.SetDefault("bundle.max_file_size", DefaultMaxFileSize)
	v.SetDefault("bundle.strict", false)
	v.SetDefault("bundle.include_vendor", false)

	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("server.max_request_size", DefaultMaxRequestSize)
	v.SetDefault("server.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.write_timeout", DefaultWriteTimeout)
	v.SetDefault("server.idle_timeout", DefaultIdleTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)

	v.SetDefault("cache.enabled", DefaultCacheEnabled)
	v.SetDefault("cache.max_size", DefaultCacheMaxSize)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_headers", "")
	v.SetDefault("telemetry.environment", "")
	v.SetDefault("telemetry.sample_ratio", 0.0)
	v.SetDefault("telemetry.otlp_insecure", false)
	v.SetDefault("telemetry.debug_trace", false)
}

// Validate checks every field that has constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bundle.Entry) == "" {
		return ErrEmptyEntry
	}

	for _, ext := range c.Bundle.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%w: %q", ErrInvalidExtension, ext)
		}
	}

	for name, size := range map[string]string{
		"bundle.max_file_size":    c.Bundle.MaxFileSize,
		"cache.max_size":          c.Cache.MaxSize,
		"server.max_request_size": c.Server.MaxRequestSize,
	} {
		if _, err := loader.ParseSize(size); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidSize, name, err)
		}
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		return ErrEmptyAddr
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	return nil
}

// ResolveOptions returns the resolver settings.
func (c *Config) ResolveOptions() resolve.Options {
	return resolve.Options{Extensions: c.Bundle.Extensions, IndexFiles: c.Bundle.IndexFiles}
}

// MaxFileSizeBytes returns bundle.max_file_size in bytes; zero means no limit.
func (c *Config) MaxFileSizeBytes() uint64 {
	n, _ := loader.ParseSize(c.Bundle.MaxFileSize)

	return n
}

// CacheBytes returns cache.max_size in bytes.
func (c *Config) CacheBytes() int64 {
	n, _ := loader.ParseSize(c.Cache.MaxSize)

	return safeconv.ClampUint64ToInt64(n)
}

// MaxRequestBytes returns server.max_request_size in bytes.
func (c *Config) MaxRequestBytes() int64 {
	n, _ := loader.ParseSize(c.Server.MaxRequestSize)

	return safeconv.ClampUint64ToInt64(n)
}

// Observability builds the telemetry settings for mode.
func (c *Config) Observability(mode observability.AppMode, version string) observability.Config {
	oc := observability.DefaultConfig()
	oc.ServiceVersion = version
	oc.Mode = mode
	oc.Environment = c.Telemetry.Environment
	oc.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	oc.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	oc.OTLPInsecure = c.Telemetry.OTLPInsecure
	oc.SampleRatio = c.Telemetry.SampleRatio
	oc.DebugTrace = c.Telemetry.DebugTrace
	oc.LogJSON = c.Logging.Format == "json"
	oc.LogLevel, _ = parseLevel(c.Logging.Level)
	oc.Prometheus = mode == observability.ModeServe

	return oc
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(s))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
	}

	return level, nil
}
