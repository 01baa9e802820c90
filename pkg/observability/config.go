// Package observability provides OpenTelemetry tracing and metrics and
// structured logging for every pipeshift mode (CLI, LSP, MCP).
package observability

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ErrUnknownLevel is returned for an unrecognized log level name.
var ErrUnknownLevel = errors.New("unknown log level")

// AppMode identifies how the binary was launched.
type AppMode string

// Application modes.
const (
	ModeCLI AppMode = "cli"
	ModeLSP AppMode = "lsp"
	ModeMCP AppMode = "mcp"
)

const (
	defaultServiceName        = "pipeshift"
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	// LogWriter receives log output. Nil means stderr; stdio servers must
	// never log to stdout.
	LogWriter io.Writer

	ServiceName    string
	ServiceVersion string
	Mode           AppMode

	// OTLPEndpoint is the OTLP gRPC collector address. Empty disables OTLP
	// export.
	OTLPEndpoint string

	// PrometheusTextfile, when set, receives the final metric values in the
	// Prometheus text format on shutdown.
	PrometheusTextfile string

	LogLevel           slog.Level
	ShutdownTimeoutSec int
	OTLPInsecure       bool
	LogJSON            bool
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}

// ParseLevel converts a level name (debug, info, warn, error).
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
}
