// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the configuration file for Load.
const EnvironmentVariable = "RTCTRACE_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// productionMaxQueuedFrames bounds the transport queue in production
// when the file does not set a bound.
const productionMaxQueuedFrames = 10000

// Config is the rtctrace configuration.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Collector configures the trace destination.
	Collector CollectorConfig `yaml:"collector"`

	// Sampling configures statistics sampling and diffing.
	Sampling SamplingConfig `yaml:"sampling"`

	// Dump configures the local dump file written instead of (or when
	// no) collector is configured.
	Dump DumpConfig `yaml:"dump"`

	// ICE configures the peer connections the probe creates.
	ICE ICEConfig `yaml:"ice"`

	// Logging configures the process logger.
	Logging LoggingConfig `yaml:"logging"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Collector *CollectorConfig `yaml:"collector,omitempty"`
	Sampling  *SamplingConfig  `yaml:"sampling,omitempty"`
	Dump      *DumpConfig      `yaml:"dump,omitempty"`
	Logging   *LoggingConfig   `yaml:"logging,omitempty"`
}

// CollectorConfig configures the collector connection.
type CollectorConfig struct {
	// Endpoint is the collector WebSocket URL, e.g.
	// wss://collector.example.org. Empty disables the collector.
	Endpoint string `yaml:"endpoint"`

	// Path is appended to Endpoint; collectors use it to group
	// traces by page or room.
	// Default: /
	Path string `yaml:"path"`

	// Codec is the frame encoding: json (text frames) or cbor
	// (binary frames).
	// Default: json
	Codec string `yaml:"codec"`

	// Reconnect re-dials the collector after the connection drops.
	// Default: true
	Reconnect bool `yaml:"reconnect"`

	// MaxQueuedFrames bounds the frames held while the collector is
	// unreachable; the oldest are dropped first. 0 is unbounded.
	// Default: 0 (development), 10000 (production)
	MaxQueuedFrames int `yaml:"max_queued_frames"`
}

// SamplingConfig configures statistics sampling.
type SamplingConfig struct {
	// Interval is the statistics sampling period as a Go duration.
	// Default: 1s
	Interval string `yaml:"interval"`

	// DiffMode is structural or flat (legacy consumers only).
	// Default: structural
	DiffMode string `yaml:"diff_mode"`
}

// DumpConfig configures the dump file.
type DumpConfig struct {
	// Path of the dump file. Empty disables the dump.
	Path string `yaml:"path"`

	// Compression is none, lz4 or zstd.
	// Default: zstd
	Compression string `yaml:"compression"`
}

// ICEConfig configures ICE servers.
type ICEConfig struct {
	// ConfigFile is a JSONC file in RTCConfiguration shape.
	ConfigFile string `yaml:"config_file"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	// Default: info
	Level string `yaml:"level"`

	// Format is json or text.
	// Default: json
	Format string `yaml:"format"`
}

var (
	codecValues       = []string{"json", "cbor"}
	diffModeValues    = []string{"structural", "flat"}
	compressionValues = []string{"none", "lz4", "zstd"}
	levelValues       = []string{"debug", "info", "warn", "error"}
	formatValues      = []string{"json", "text"}
)

// Default returns the default configuration, used as a base before
// loading the config file.
func Default() *Config {
	return &Config{
		Environment: Development,
		Collector: CollectorConfig{
			Path:      "/",
			Codec:     "json",
			Reconnect: true,
		},
		Sampling: SamplingConfig{
			Interval: "1s",
			DiffMode: "structural",
		},
		Dump: DumpConfig{
			Compression: "zstd",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from the file named by RTCTRACE_CONFIG.
// There is no fallback: if the variable is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your rtctrace.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if c.Collector.MaxQueuedFrames == 0 {
			c.Collector.MaxQueuedFrames = productionMaxQueuedFrames
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Collector != nil {
		if overrides.Collector.Endpoint != "" {
			c.Collector.Endpoint = overrides.Collector.Endpoint
		}
		if overrides.Collector.Path != "" {
			c.Collector.Path = overrides.Collector.Path
		}
		if overrides.Collector.Codec != "" {
			c.Collector.Codec = overrides.Collector.Codec
		}
		// Reconnect is a bool, so it is always taken from the override.
		c.Collector.Reconnect = overrides.Collector.Reconnect
		if overrides.Collector.MaxQueuedFrames != 0 {
			c.Collector.MaxQueuedFrames = overrides.Collector.MaxQueuedFrames
		}
	}

	if overrides.Sampling != nil {
		if overrides.Sampling.Interval != "" {
			c.Sampling.Interval = overrides.Sampling.Interval
		}
		if overrides.Sampling.DiffMode != "" {
			c.Sampling.DiffMode = overrides.Sampling.DiffMode
		}
	}

	if overrides.Dump != nil {
		if overrides.Dump.Path != "" {
			c.Dump.Path = overrides.Dump.Path
		}
		if overrides.Dump.Compression != "" {
			c.Dump.Compression = overrides.Dump.Compression
		}
	}

	if overrides.Logging != nil {
		if overrides.Logging.Level != "" {
			c.Logging.Level = overrides.Logging.Level
		}
		if overrides.Logging.Format != "" {
			c.Logging.Format = overrides.Logging.Format
		}
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Dump.Path = expandVars(c.Dump.Path, vars)
	c.ICE.ConfigFile = expandVars(c.ICE.ConfigFile, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Collector.Endpoint == "" && c.Dump.Path == "" {
		errs = append(errs, fmt.Errorf("collector.endpoint or dump.path is required"))
	}
	if !slices.Contains(codecValues, c.Collector.Codec) {
		errs = append(errs, fmt.Errorf("collector.codec must be one of: %v", codecValues))
	}
	if c.Collector.MaxQueuedFrames < 0 {
		errs = append(errs, fmt.Errorf("collector.max_queued_frames must not be negative"))
	}

	if interval, err := time.ParseDuration(c.Sampling.Interval); err != nil {
		errs = append(errs, fmt.Errorf("sampling.interval: %w", err))
	} else if interval < 0 {
		errs = append(errs, fmt.Errorf("sampling.interval must not be negative"))
	}
	if !slices.Contains(diffModeValues, c.Sampling.DiffMode) {
		errs = append(errs, fmt.Errorf("sampling.diff_mode must be one of: %v", diffModeValues))
	}

	if !slices.Contains(compressionValues, c.Dump.Compression) {
		errs = append(errs, fmt.Errorf("dump.compression must be one of: %v", compressionValues))
	}

	if !slices.Contains(levelValues, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", levelValues))
	}
	if !slices.Contains(formatValues, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", formatValues))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SamplingInterval returns the parsed sampling interval. Call Validate
// first; an unparseable interval returns 0, which disables sampling.
func (c *Config) SamplingInterval() time.Duration {
	interval, err := time.ParseDuration(c.Sampling.Interval)
	if err != nil {
		return 0
	}
	return interval
}

// NewLogger returns a logger writing to w in the configured format and
// level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	options := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "text" {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}
