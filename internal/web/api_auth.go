package web

import (
	"net/http"

	"github.com/haasonsaas/claudebridge/internal/auth"
)

// authStatusResponse is the GET /v1/auth/status body.
type authStatusResponse struct {
	ServerInfo serverInfo      `json:"server_info"`
	ClaudeAuth claudeAuthState `json:"claude_auth"`
}

type serverInfo struct {
	APIKeyRequired bool   `json:"api_key_required"`
	AuthMethod     string `json:"auth_method"`
	Provider       string `json:"provider"`
}

type claudeAuthState struct {
	Configured                bool     `json:"configured"`
	AnthropicAPIKeyConfigured bool     `json:"anthropic_api_key_configured"`
	BedrockConfigured         bool     `json:"bedrock_configured"`
	VertexConfigured          bool     `json:"vertex_configured"`
	ClaudeCLIAvailable        bool     `json:"claude_cli_available"`
	Errors                    []string `json:"errors,omitempty"`
}

// handleAuthStatus reports how the gateway authenticates against Claude and
// whether its own surface requires a wrapper key. Exempt from the key guard
// so clients can diagnose before authenticating.
func (h *Handler) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, r)
		return
	}

	var state auth.State
	if h.config.Resolver != nil {
		state = h.config.Resolver.State()
	} else {
		state.Method = auth.MethodNone
	}

	required := h.config.APIKey != ""
	authMethod := "none"
	if required {
		authMethod = "bearer"
	}

	h.jsonResponse(w, http.StatusOK, authStatusResponse{
		ServerInfo: serverInfo{
			APIKeyRequired: required,
			AuthMethod:     authMethod,
			Provider:       string(state.Method),
		},
		ClaudeAuth: claudeAuthState{
			Configured:                state.Authenticated,
			AnthropicAPIKeyConfigured: state.AnthropicConfigured,
			BedrockConfigured:         state.BedrockConfigured,
			VertexConfigured:          state.VertexConfigured,
			ClaudeCLIAvailable:        state.ClaudeCLIAvailable,
			Errors:                    state.Errors,
		},
	})
}
