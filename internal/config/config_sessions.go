package config

import "time"

// SessionsConfig controls the in-memory session store.
type SessionsConfig struct {
	// TTL is how long a session survives after its last access.
	TTL time.Duration `yaml:"ttl"`

	// CleanupInterval is how often the reaper sweeps expired sessions.
	// Expiration itself is a property of the timestamps: list/get never
	// surface an expired session even before the next sweep.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// MaxMessages caps per-session history; oldest messages are dropped
	// beyond it.
	MaxMessages int `yaml:"max_messages"`
}
