package auth

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func noEnv(string) string { return "" }

func noCLI() (string, error) { return "", errors.New("not found") }

func writeCredentials(t *testing.T, expiresAt int64) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ".credentials.json")
	payload := map[string]any{
		"claudeAiOauth": map[string]any{
			"accessToken": "sk-ant-oat01-test",
			"expiresAt":   expiresAt,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal credentials: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
	return path
}

func TestResolverAnthropicWins(t *testing.T) {
	env := map[string]string{
		"ANTHROPIC_API_KEY":       "sk-ant-api03-abc",
		"CLAUDE_CODE_USE_BEDROCK": "1",
		"AWS_REGION":              "us-east-1",
	}
	r := NewResolver(ResolverOptions{
		CredentialsPath: filepath.Join(t.TempDir(), "missing.json"),
		Getenv:          func(key string) string { return env[key] },
		LookupCLI:       noCLI,
	})

	state := r.State()
	if !state.Authenticated {
		t.Fatalf("expected authenticated state")
	}
	if state.Method != MethodAnthropic {
		t.Fatalf("Method = %q, want %q", state.Method, MethodAnthropic)
	}
	if state.EnvOverlay["ANTHROPIC_API_KEY"] != "sk-ant-api03-abc" {
		t.Fatalf("overlay missing api key: %v", state.EnvOverlay)
	}
	if !state.BedrockConfigured {
		t.Fatalf("expected bedrock flag set even when anthropic wins")
	}
}

func TestResolverBedrockRequiresRegion(t *testing.T) {
	env := map[string]string{"CLAUDE_CODE_USE_BEDROCK": "true"}
	r := NewResolver(ResolverOptions{
		CredentialsPath: filepath.Join(t.TempDir(), "missing.json"),
		Getenv:          func(key string) string { return env[key] },
		LookupCLI:       noCLI,
	})

	state := r.State()
	if state.BedrockConfigured {
		t.Fatalf("bedrock should not be configured without a region")
	}
	if state.Method != MethodNone {
		t.Fatalf("Method = %q, want %q", state.Method, MethodNone)
	}

	env["AWS_DEFAULT_REGION"] = "eu-west-1"
	state = r.Refresh()
	if state.Method != MethodBedrock {
		t.Fatalf("Method = %q, want %q", state.Method, MethodBedrock)
	}
	if state.EnvOverlay["CLAUDE_CODE_USE_BEDROCK"] != "1" {
		t.Fatalf("overlay = %v, want bedrock toggle", state.EnvOverlay)
	}
}

func TestResolverVertexToggle(t *testing.T) {
	env := map[string]string{"CLAUDE_CODE_USE_VERTEX": "1"}
	r := NewResolver(ResolverOptions{
		CredentialsPath: filepath.Join(t.TempDir(), "missing.json"),
		Getenv:          func(key string) string { return env[key] },
		LookupCLI:       noCLI,
	})

	state := r.State()
	if state.Method != MethodVertex {
		t.Fatalf("Method = %q, want %q", state.Method, MethodVertex)
	}
	if !state.VertexConfigured {
		t.Fatalf("expected vertex configured")
	}
}

func TestResolverClaudeCLICredentials(t *testing.T) {
	path := writeCredentials(t, time.Now().Add(time.Hour).UnixMilli())
	r := NewResolver(ResolverOptions{
		CredentialsPath: path,
		Getenv:          noEnv,
		LookupCLI:       noCLI,
	})

	state := r.State()
	if state.Method != MethodClaudeCLI {
		t.Fatalf("Method = %q, want %q", state.Method, MethodClaudeCLI)
	}
	if !state.ClaudeCLIAvailable {
		t.Fatalf("expected claude cli available")
	}
	if len(state.EnvOverlay) != 0 {
		t.Fatalf("claude-cli method should not set an overlay: %v", state.EnvOverlay)
	}
}

func TestResolverExpiredCredentialsFallBackToBinary(t *testing.T) {
	path := writeCredentials(t, time.Now().Add(-time.Hour).UnixMilli())

	r := NewResolver(ResolverOptions{
		CredentialsPath: path,
		Getenv:          noEnv,
		LookupCLI:       noCLI,
	})
	state := r.State()
	if state.Authenticated {
		t.Fatalf("expected unauthenticated with expired token and no binary")
	}
	found := false
	for _, reason := range state.Errors {
		if reason == "claude-cli: OAuth token is expired, run `claude login`" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected expiry skip reason, got %v", state.Errors)
	}

	r = NewResolver(ResolverOptions{
		CredentialsPath: path,
		Getenv:          noEnv,
		LookupCLI:       func() (string, error) { return "/usr/local/bin/claude", nil },
	})
	if state := r.State(); state.Method != MethodClaudeCLI {
		t.Fatalf("Method = %q, want %q via discovered binary", state.Method, MethodClaudeCLI)
	}
}

func TestResolverNoneRecordsAllReasons(t *testing.T) {
	r := NewResolver(ResolverOptions{
		CredentialsPath: filepath.Join(t.TempDir(), "missing.json"),
		Getenv:          noEnv,
		LookupCLI:       noCLI,
	})

	state := r.State()
	if state.Authenticated || state.Method != MethodNone {
		t.Fatalf("expected unauthenticated none state, got %+v", state)
	}
	if len(state.Errors) < 4 {
		t.Fatalf("expected a skip reason per provider, got %v", state.Errors)
	}
}

func TestResolverStateIsACopy(t *testing.T) {
	env := map[string]string{"ANTHROPIC_API_KEY": "sk-ant-api03-abc"}
	r := NewResolver(ResolverOptions{
		CredentialsPath: filepath.Join(t.TempDir(), "missing.json"),
		Getenv:          func(key string) string { return env[key] },
		LookupCLI:       noCLI,
	})

	state := r.State()
	state.EnvOverlay["ANTHROPIC_API_KEY"] = "mutated"
	if r.State().EnvOverlay["ANTHROPIC_API_KEY"] != "sk-ant-api03-abc" {
		t.Fatalf("cached state mutated through returned copy")
	}
}

func TestResolverAPIKeyProtected(t *testing.T) {
	r := NewResolver(ResolverOptions{
		APIKeyConfigured: true,
		CredentialsPath:  filepath.Join(t.TempDir(), "missing.json"),
		Getenv:           noEnv,
		LookupCLI:        noCLI,
	})
	if !r.State().APIKeyProtected {
		t.Fatalf("expected APIKeyProtected true")
	}
}
