package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pipeshift/pkg/config"
	"github.com/Sumatoshi-tech/pipeshift/pkg/typecheck"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".pipeshift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultMaxPasses, cfg.Passes.Max)
	assert.Equal(t, config.DefaultWorkers, cfg.Workers)
	assert.Empty(t, cfg.Rules.Enabled)
	assert.Equal(t, typecheck.DefaultStreamTypes, cfg.Types.Stream)
	assert.Equal(t, config.DefaultExtensions, cfg.Files.Extensions)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, config.DefaultLogFormat, cfg.Logging.Format)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)

	opts := cfg.TypeOptions()
	assert.Equal(t, typecheck.DefaultStreamMethods, opts.StreamMethods)
	assert.Equal(t, typecheck.DefaultStreamModules, opts.StreamModules)
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, `passes:
  max: 3
workers: 2
rules:
  enabled:
    - ngrx-store-operators
types:
  stream: [Observable, EventStream]
logging:
  level: debug
  format: json
telemetry:
  prometheus_textfile: /tmp/pipeshift.prom
`))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Passes.Max)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, []string{"ngrx-store-operators"}, cfg.Rules.Enabled)
	assert.Equal(t, []string{"Observable", "EventStream"}, cfg.Types.Stream)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/tmp/pipeshift.prom", cfg.Telemetry.PrometheusTextfile)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "passes:\n  max: 3\n")

	t.Setenv("PIPESHIFT_PASSES_MAX", "7")
	t.Setenv("PIPESHIFT_LOGGING_LEVEL", "warn")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Passes.Max)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"zero_passes", "passes:\n  max: 0\n", config.ErrInvalidConfig},
		{"negative_workers", "workers: -1\n", config.ErrInvalidConfig},
		{"bad_level", "logging:\n  level: loud\n", config.ErrInvalidConfig},
		{"bad_format", "logging:\n  format: xml\n", config.ErrInvalidConfig},
		{"bad_type_name", "types:\n  stream: [\"not a type\"]\n", config.ErrInvalidConfig},
		{"bad_extension", "files:\n  extensions: [ts]\n", config.ErrInvalidConfig},
		{"empty_stream", "types:\n  stream: []\n", config.ErrEmptyStream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
