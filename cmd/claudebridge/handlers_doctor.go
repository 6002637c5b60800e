package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/claudebridge/internal/auth"
	"github.com/haasonsaas/claudebridge/internal/claude"
	"github.com/haasonsaas/claudebridge/internal/config"
	"github.com/haasonsaas/claudebridge/internal/observability"
)

// =============================================================================
// Doctor Command Handler
// =============================================================================

// runDoctor handles the doctor command. It reports the effective
// configuration, the resolved authentication provider, and whether the Claude
// runtime backend is invocable, then fails if serving would fail.
func runDoctor(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The report goes to out; keep component logs out of it.
	logger := observability.NewLogger(observability.LogConfig{Level: "error", Output: io.Discard})

	resolver := auth.NewResolver(auth.ResolverOptions{
		APIKeyConfigured: cfg.Auth.APIKey != "",
		Logger:           logger,
	})
	state := resolver.State()

	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  - config file: %s\n", configPath)
	fmt.Fprintf(out, "  - listen: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Fprintf(out, "  - backend: %s\n", cfg.Claude.Runtime)
	fmt.Fprintf(out, "  - default model: %s\n", cfg.Claude.DefaultModel)
	fmt.Fprintf(out, "  - session ttl: %s (cleanup every %s)\n", cfg.Sessions.TTL, cfg.Sessions.CleanupInterval)
	fmt.Fprintf(out, "  - request timeout: %s\n", cfg.Server.RequestTimeout)

	fmt.Fprintln(out, "Authentication:")
	fmt.Fprintf(out, "  - method: %s\n", string(state.Method))
	fmt.Fprintf(out, "  - authenticated: %s\n", yesNo(state.Authenticated))
	fmt.Fprintf(out, "  - wrapper api key required: %s\n", yesNo(state.APIKeyProtected))
	fmt.Fprintf(out, "  - anthropic api key: %s\n", yesNo(state.AnthropicConfigured))
	fmt.Fprintf(out, "  - aws bedrock: %s\n", yesNo(state.BedrockConfigured))
	fmt.Fprintf(out, "  - google vertex: %s\n", yesNo(state.VertexConfigured))
	fmt.Fprintf(out, "  - claude cli login: %s\n", yesNo(state.ClaudeCLIAvailable))
	if len(state.Errors) > 0 {
		fmt.Fprintln(out, "Providers skipped:")
		for _, reason := range state.Errors {
			fmt.Fprintf(out, "  - %s\n", reason)
		}
	}

	runtimeCfg := claude.Config{
		Backend:      cfg.Claude.Runtime,
		Command:      cfg.Claude.Command,
		DefaultModel: cfg.Claude.DefaultModel,
	}
	if cfg.Claude.Runtime == config.RuntimeSDK {
		runtimeCfg.APIKey = state.EnvOverlay["ANTHROPIC_API_KEY"]
	}

	fmt.Fprintln(out, "Claude runtime:")
	runtime, err := claude.NewRuntime(runtimeCfg, logger)
	if err != nil {
		fmt.Fprintf(out, "  - available: no (%v)\n", err)
		return fmt.Errorf("claude runtime unavailable: %w", err)
	}
	verification := runtime.Verify(cmd.Context())
	fmt.Fprintf(out, "  - backend: %s\n", verification.Backend)
	fmt.Fprintf(out, "  - available: %s\n", yesNo(verification.Available))
	if verification.Path != "" {
		fmt.Fprintf(out, "  - path: %s\n", verification.Path)
	}
	if !verification.Available {
		if verification.Error != "" {
			fmt.Fprintf(out, "  - error: %s\n", verification.Error)
		}
		if verification.Suggestion != "" {
			fmt.Fprintf(out, "  - suggestion: %s\n", verification.Suggestion)
		}
		return fmt.Errorf("claude runtime unavailable")
	}

	if !state.Authenticated {
		return fmt.Errorf("no claude authentication provider resolved")
	}

	fmt.Fprintln(out, "All checks passed.")
	return nil
}

// yesNo renders a boolean check in the doctor report.
func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

// =============================================================================
// Version Command Handler
// =============================================================================

// runVersion handles the version command.
func runVersion(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "claudebridge %s\n", version)
	fmt.Fprintf(out, "  commit: %s\n", commit)
	fmt.Fprintf(out, "  built:  %s\n", date)
	return nil
}
