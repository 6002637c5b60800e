package config

import "time"

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// RequestTimeout bounds one completion request end to end; on expiry the
	// runtime call is cancelled and the client receives a timeout_error.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ShutdownTimeout bounds graceful drain on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig controls the wrapper API key protecting this gateway's own
// surface. It is independent of Claude provider credentials.
type AuthConfig struct {
	// APIKey, when non-empty, requires Authorization: Bearer <APIKey> on
	// every route except /health, /v1/auth/status and /metrics.
	APIKey string `yaml:"api_key"`
}
