package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Credential errors.
var (
	ErrCredentialsNotFound = errors.New("credentials file not found")
	ErrCredentialsInvalid  = errors.New("invalid credentials format")
	ErrNoOAuthCredentials  = errors.New("no OAuth credentials in file")
)

// Credentials holds the Claude CLI OAuth tokens stored by `claude login`.
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`

	// ExpiresAt is the Unix timestamp in milliseconds when the access
	// token expires.
	ExpiresAt int64 `json:"expiresAt"`

	Scopes           []string `json:"scopes"`
	SubscriptionType string   `json:"subscriptionType"`
}

// credentialFile mirrors the on-disk ~/.claude/.credentials.json layout.
type credentialFile struct {
	ClaudeAiOauth *Credentials `json:"claudeAiOauth"`
}

// DefaultCredentialsPath returns ~/.claude/.credentials.json, or the empty
// string when the home directory cannot be determined.
func DefaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", ".credentials.json")
}

// LoadCredentials reads Claude CLI OAuth credentials from path, falling back
// to the default location when path is empty.
func LoadCredentials(path string) (*Credentials, error) {
	if path == "" {
		path = DefaultCredentialsPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, path)
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var file credentialFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentialsInvalid, err)
	}
	if file.ClaudeAiOauth == nil {
		return nil, ErrNoOAuthCredentials
	}
	return file.ClaudeAiOauth, nil
}

// Expired reports whether the access token expiry has passed.
func (c *Credentials) Expired() bool {
	return time.Now().UnixMilli() >= c.ExpiresAt
}

// ExpiresIn returns the time remaining until expiry, negative when already
// expired.
func (c *Credentials) ExpiresIn() time.Duration {
	return time.Until(time.UnixMilli(c.ExpiresAt))
}

// Validate checks the fields the resolver relies on.
func (c *Credentials) Validate() error {
	if c.AccessToken == "" {
		return fmt.Errorf("%w: missing access token", ErrCredentialsInvalid)
	}
	if c.ExpiresAt == 0 {
		return fmt.Errorf("%w: missing expiration time", ErrCredentialsInvalid)
	}
	return nil
}
