package config

import "time"

// Bundle defaults.
const (
	DefaultEntry       = "main.js"
	DefaultMaxFileSize = "4 MiB"
)

// Server defaults.
const (
	DefaultAddr            = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultMaxRequestSize  = "16 MiB"
	DefaultShutdownTimeout = 10 * time.Second
)

// Cache defaults.
const (
	DefaultCacheEnabled = true
	DefaultCacheMaxSize = "64 MiB"
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// DefaultExtensions and DefaultIndexFiles mirror resolve.DefaultOptions.
var (
	DefaultExtensions = []string{".js"}
	DefaultIndexFiles = []string{"index.js"}
)
