package config

// Pass loop defaults.
const (
	DefaultMaxPasses = 10
	DefaultWorkers   = 0
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// DefaultExtensions lists the file extensions enumerated by default.
var DefaultExtensions = []string{".ts", ".tsx", ".mts", ".cts"}

// DefaultExclude lists glob patterns never enumerated by default.
var DefaultExclude = []string{"**/node_modules/**", "**/*.d.ts", "**/dist/**"}
