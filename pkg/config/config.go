// Package config loads pipeshift settings from defaults, an optional YAML
// file and PIPESHIFT_* environment variables.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/pipeshift/pkg/typecheck"
)

// Sentinel validation errors.
var (
	ErrInvalidConfig = errors.New("configuration does not match schema")
	ErrEmptyStream   = errors.New("types.stream must name at least one type")
)

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "PIPESHIFT"

//go:embed schema.json
var schemaJSON []byte

// Config holds all pipeshift settings.
type Config struct {
	Logging   LoggingConfig   `json:"logging"   mapstructure:"logging"`
	Telemetry TelemetryConfig `json:"telemetry" mapstructure:"telemetry"`
	Rules     RulesConfig     `json:"rules"     mapstructure:"rules"`
	Types     TypesConfig     `json:"types"     mapstructure:"types"`
	Files     FilesConfig     `json:"files"     mapstructure:"files"`
	Passes    PassesConfig    `json:"passes"    mapstructure:"passes"`
	Workers   int             `json:"workers"   mapstructure:"workers"`
}

// PassesConfig bounds the fixed-point loop.
type PassesConfig struct {
	Max int `json:"max" mapstructure:"max"`
}

// RulesConfig selects rules. An empty list enables every rule.
type RulesConfig struct {
	Enabled []string `json:"enabled" mapstructure:"enabled"`
}

// TypesConfig feeds the type oracle.
type TypesConfig struct {
	Stream            []string `json:"stream"             mapstructure:"stream"`
	CreationFunctions []string `json:"creation_functions" mapstructure:"creation_functions"`
	StreamMethods     []string `json:"stream_methods"     mapstructure:"stream_methods"`
	StreamModules     []string `json:"stream_modules"     mapstructure:"stream_modules"`
}

// FilesConfig controls input enumeration.
type FilesConfig struct {
	Extensions []string `json:"extensions" mapstructure:"extensions"`
	Exclude    []string `json:"exclude"    mapstructure:"exclude"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `json:"level"  mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// TelemetryConfig holds exporter settings. Empty values disable export.
type TelemetryConfig struct {
	OTLPEndpoint       string `json:"otlp_endpoint"       mapstructure:"otlp_endpoint"`
	PrometheusTextfile string `json:"prometheus_textfile" mapstructure:"prometheus_textfile"`
	OTLPInsecure       bool   `json:"otlp_insecure"       mapstructure:"otlp_insecure"`
}

// TypeOptions converts the type settings for the resolver.
func (c *Config) TypeOptions() typecheck.Options {
	return typecheck.Options{
		StreamTypes:       c.Types.Stream,
		CreationFunctions: c.Types.CreationFunctions,
		StreamMethods:     c.Types.StreamMethods,
		StreamModules:     c.Types.StreamModules,
	}
}

// LoadConfig loads configuration. An empty configPath searches for
// .pipeshift.yaml in the working directory and $HOME; a missing file there
// is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(".pipeshift")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME")
	}

	viperCfg.SetEnvPrefix(EnvPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("passes.max", DefaultMaxPasses)
	viperCfg.SetDefault("workers", DefaultWorkers)
	viperCfg.SetDefault("rules.enabled", []string{})

	viperCfg.SetDefault("types.stream", typecheck.DefaultStreamTypes)
	viperCfg.SetDefault("types.creation_functions", typecheck.DefaultCreationFunctions)
	viperCfg.SetDefault("types.stream_methods", typecheck.DefaultStreamMethods)
	viperCfg.SetDefault("types.stream_modules", typecheck.DefaultStreamModules)

	viperCfg.SetDefault("files.extensions", DefaultExtensions)
	viperCfg.SetDefault("files.exclude", DefaultExclude)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.prometheus_textfile", "")
}

// validateConfig checks the decoded settings against the embedded schema,
// then applies the checks the schema cannot express.
func validateConfig(config *Config) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
	}

	if len(config.Types.Stream) == 0 {
		return ErrEmptyStream
	}

	return nil
}
