// Package auth resolves how the gateway authenticates against Claude and
// guards the gateway's own HTTP surface with an optional wrapper API key.
//
// Provider resolution is strictly local: it inspects environment variables,
// the Claude CLI credentials file and the PATH, and never makes a network
// call. The first configured provider in the order anthropic, bedrock,
// vertex, claude-cli wins.
package auth

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/haasonsaas/claudebridge/internal/observability"
)

// Method identifies the provider path used to authenticate Claude calls.
type Method string

const (
	MethodAnthropic Method = "anthropic"
	MethodBedrock   Method = "bedrock"
	MethodVertex    Method = "vertex"
	MethodClaudeCLI Method = "claude-cli"
	MethodNone      Method = "none"
)

// State is one resolved authentication snapshot. Errors holds human-readable
// skip reasons for every provider that did not qualify, in resolution order;
// it is populated even when a later provider succeeded so diagnostics can
// show why the chosen method won.
type State struct {
	Authenticated   bool
	Method          Method
	APIKeyProtected bool
	Errors          []string
	EnvOverlay      map[string]string

	AnthropicConfigured bool
	BedrockConfigured   bool
	VertexConfigured    bool
	ClaudeCLIAvailable  bool

	ResolvedAt time.Time
}

// ResolverOptions configures a Resolver. Zero values select the real
// environment, the default credentials path and PATH lookup.
type ResolverOptions struct {
	// APIKeyConfigured records whether the wrapper bearer key is set; it
	// is surfaced through State.APIKeyProtected.
	APIKeyConfigured bool

	// CredentialsPath overrides ~/.claude/.credentials.json.
	CredentialsPath string

	// Getenv overrides environment lookup. For testing.
	Getenv func(string) string

	// LookupCLI overrides Claude binary discovery. For testing.
	LookupCLI func() (string, error)

	Logger *observability.Logger
}

// Resolver computes and caches the authentication state. The cached state is
// refreshed explicitly via Refresh, typically triggered by the credentials
// file watcher.
type Resolver struct {
	apiKeyConfigured bool
	credentialsPath  string
	getenv           func(string) string
	lookupCLI        func() (string, error)
	logger           *observability.Logger

	mu    sync.RWMutex
	state State
}

// NewResolver creates a resolver and performs the initial resolution.
func NewResolver(opts ResolverOptions) *Resolver {
	r := &Resolver{
		apiKeyConfigured: opts.APIKeyConfigured,
		credentialsPath:  opts.CredentialsPath,
		getenv:           opts.Getenv,
		lookupCLI:        opts.LookupCLI,
		logger:           opts.Logger,
	}
	if r.credentialsPath == "" {
		r.credentialsPath = DefaultCredentialsPath()
	}
	if r.getenv == nil {
		r.getenv = os.Getenv
	}
	if r.lookupCLI == nil {
		r.lookupCLI = func() (string, error) { return exec.LookPath("claude") }
	}
	r.Refresh()
	return r
}

// State returns the cached snapshot. The returned value is a copy; callers
// may not observe later refreshes through it.
func (r *Resolver) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneState(r.state)
}

// Refresh recomputes the authentication state and returns the new snapshot.
func (r *Resolver) Refresh() State {
	next := r.resolve()

	r.mu.Lock()
	prev := r.state.Method
	r.state = next
	r.mu.Unlock()

	if r.logger != nil && prev != next.Method {
		r.logger.Info(context.Background(), "auth method resolved",
			"method", string(next.Method),
			"authenticated", next.Authenticated,
		)
	}
	return cloneState(next)
}

// EnvOverlay returns the environment variables to apply when invoking the
// Claude runtime under the current state.
func (r *Resolver) EnvOverlay() map[string]string {
	return r.State().EnvOverlay
}

func (r *Resolver) resolve() State {
	state := State{
		Method:          MethodNone,
		APIKeyProtected: r.apiKeyConfigured,
		EnvOverlay:      map[string]string{},
		ResolvedAt:      time.Now().UTC(),
	}

	// Anthropic API key.
	if key := strings.TrimSpace(r.getenv("ANTHROPIC_API_KEY")); key != "" {
		state.AnthropicConfigured = true
		state.Method = MethodAnthropic
		state.EnvOverlay["ANTHROPIC_API_KEY"] = key
	} else {
		state.Errors = append(state.Errors, "anthropic: ANTHROPIC_API_KEY is not set")
	}

	// AWS Bedrock, toggled by Claude Code's own env convention.
	if envBool(r.getenv("CLAUDE_CODE_USE_BEDROCK")) {
		region := strings.TrimSpace(r.getenv("AWS_REGION"))
		if region == "" {
			region = strings.TrimSpace(r.getenv("AWS_DEFAULT_REGION"))
		}
		if region != "" {
			state.BedrockConfigured = true
			if state.Method == MethodNone {
				state.Method = MethodBedrock
				state.EnvOverlay["CLAUDE_CODE_USE_BEDROCK"] = "1"
			}
		} else {
			state.Errors = append(state.Errors, "bedrock: CLAUDE_CODE_USE_BEDROCK is set but no AWS region is configured")
		}
	} else {
		state.Errors = append(state.Errors, "bedrock: CLAUDE_CODE_USE_BEDROCK is not enabled")
	}

	// Google Vertex, either via the explicit toggle or application
	// credentials pointing at an existing file.
	vertexToggle := envBool(r.getenv("CLAUDE_CODE_USE_VERTEX"))
	adcPath := strings.TrimSpace(r.getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	switch {
	case vertexToggle:
		state.VertexConfigured = true
	case adcPath != "":
		if _, err := os.Stat(adcPath); err == nil {
			state.VertexConfigured = true
		} else {
			state.Errors = append(state.Errors, fmt.Sprintf("vertex: GOOGLE_APPLICATION_CREDENTIALS file %s does not exist", adcPath))
		}
	default:
		state.Errors = append(state.Errors, "vertex: CLAUDE_CODE_USE_VERTEX is not enabled and GOOGLE_APPLICATION_CREDENTIALS is not set")
	}
	if state.VertexConfigured && state.Method == MethodNone {
		state.Method = MethodVertex
		state.EnvOverlay["CLAUDE_CODE_USE_VERTEX"] = "1"
	}

	// Claude CLI session: a live OAuth token or at least a discoverable
	// binary. The CLI reads its own credentials, so no overlay is needed.
	cliOK := false
	if creds, err := LoadCredentials(r.credentialsPath); err != nil {
		state.Errors = append(state.Errors, fmt.Sprintf("claude-cli: %v", err))
	} else if err := creds.Validate(); err != nil {
		state.Errors = append(state.Errors, fmt.Sprintf("claude-cli: %v", err))
	} else if creds.Expired() {
		state.Errors = append(state.Errors, "claude-cli: OAuth token is expired, run `claude login`")
	} else {
		cliOK = true
	}
	if !cliOK {
		if _, err := r.lookupCLI(); err == nil {
			cliOK = true
		} else {
			state.Errors = append(state.Errors, "claude-cli: claude binary not found")
		}
	}
	state.ClaudeCLIAvailable = cliOK
	if cliOK && state.Method == MethodNone {
		state.Method = MethodClaudeCLI
	}

	state.Authenticated = state.Method != MethodNone
	return state
}

func cloneState(state State) State {
	clone := state
	if state.Errors != nil {
		clone.Errors = append([]string{}, state.Errors...)
	}
	if state.EnvOverlay != nil {
		clone.EnvOverlay = make(map[string]string, len(state.EnvOverlay))
		for k, v := range state.EnvOverlay {
			clone.EnvOverlay[k] = v
		}
	}
	return clone
}

func envBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
