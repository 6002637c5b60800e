// Package config loads and validates the gateway configuration.
//
// Configuration comes from three layers, later layers winning: built-in
// defaults, an optional YAML file, and process environment variables. The
// resolved Config is immutable after Load; components receive it by value or
// shared reference and never mutate it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the gateway.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Sessions SessionsConfig `yaml:"sessions"`
	Claude   ClaudeConfig   `yaml:"claude"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// Load reads the configuration file at path, expands environment variable
// references, decodes it strictly (unknown fields are errors), then applies
// defaults and environment overrides. A missing file is not an error: the
// gateway runs fine on defaults plus environment.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := decodeStrict([]byte(expanded), &cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
		// Defaults and environment carry the configuration.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decodeStrict parses a single YAML document, rejecting unknown fields and
// trailing documents.
func decodeStrict(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("failed to parse config: expected single document")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 10 * time.Minute
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Sessions.TTL == 0 {
		cfg.Sessions.TTL = time.Hour
	}
	if cfg.Sessions.CleanupInterval == 0 {
		cfg.Sessions.CleanupInterval = 5 * time.Minute
	}
	if cfg.Sessions.MaxMessages == 0 {
		cfg.Sessions.MaxMessages = 1000
	}
	if cfg.Claude.DefaultModel == "" {
		cfg.Claude.DefaultModel = "claude-3-5-sonnet-20241022"
	}
	if cfg.Claude.Runtime == "" {
		cfg.Claude.Runtime = RuntimeCLI
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "claudebridge"
	}
	if cfg.Tracing.SamplingRate == 0 {
		cfg.Tracing.SamplingRate = 1.0
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Sessions.TTL < 0 {
		return fmt.Errorf("sessions.ttl must not be negative")
	}
	if c.Sessions.CleanupInterval < 0 {
		return fmt.Errorf("sessions.cleanup_interval must not be negative")
	}
	switch c.Claude.Runtime {
	case RuntimeCLI, RuntimeSDK:
	default:
		return fmt.Errorf("claude.runtime must be %q or %q, got %q", RuntimeCLI, RuntimeSDK, c.Claude.Runtime)
	}
	return nil
}
