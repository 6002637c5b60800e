package config

import (
	"os"
	"strconv"
	"time"
)

// applyEnvOverrides lets the documented environment variables win over file
// values. Unparseable values are ignored rather than fatal so a stray export
// cannot keep the gateway from starting.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			cfg.Server.RequestTimeout = time.Duration(secs * float64(time.Second))
		}
	}
	if v := os.Getenv("SESSION_TTL_HOURS"); v != "" {
		if hours, err := strconv.ParseFloat(v, 64); err == nil && hours > 0 {
			cfg.Sessions.TTL = time.Duration(hours * float64(time.Hour))
		}
	}
	if v := os.Getenv("SESSION_CLEANUP_INTERVAL_MINUTES"); v != "" {
		if mins, err := strconv.ParseFloat(v, 64); err == nil && mins > 0 {
			cfg.Sessions.CleanupInterval = time.Duration(mins * float64(time.Minute))
		}
	}
	// CLAUDE_COMMAND wins over CLAUDE_CLI_PATH, both win over the file.
	if v := os.Getenv("CLAUDE_CLI_PATH"); v != "" {
		cfg.Claude.Command = v
	}
	if v := os.Getenv("CLAUDE_COMMAND"); v != "" {
		cfg.Claude.Command = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
}
