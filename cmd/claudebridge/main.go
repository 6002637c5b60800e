// Package main provides the CLI entry point for the claudebridge gateway.
//
// claudebridge exposes an OpenAI-compatible Chat Completions API backed by a
// local Claude runtime (the Claude Code CLI or the Anthropic SDK), so existing
// OpenAI clients can talk to Claude by switching their base URL.
//
// # Basic Usage
//
// Start the server:
//
//	claudebridge serve --config claudebridge.yaml
//
// Check runtime discovery and authentication state:
//
//	claudebridge doctor
//
// # Environment Variables
//
//   - CLAUDEBRIDGE_CONFIG: Path to configuration file (default: claudebridge.yaml)
//   - ANTHROPIC_API_KEY: Anthropic API key (also enables the SDK backend)
//   - CLAUDE_CODE_USE_BEDROCK: Route Claude calls through AWS Bedrock
//   - CLAUDE_CODE_USE_VERTEX: Route Claude calls through Google Vertex AI
//   - GOOGLE_APPLICATION_CREDENTIALS: Service account file for Vertex AI
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// defaultConfigName is the config file looked up relative to the working
// directory when neither --config nor CLAUDEBRIDGE_CONFIG is set.
const defaultConfigName = "claudebridge.yaml"

// Build information - populated by ldflags during build.
//
// Example build command:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"     // Semantic version (e.g., "v1.0.0")
	commit  = "none"    // Git commit SHA
	date    = "unknown" // Build timestamp
)

// main is the entry point for the claudebridge CLI.
func main() {
	// Configure structured logging with JSON output for production parsing.
	// Commands that load a config replace this with the configured logger.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()

	// Execute the CLI - Cobra handles argument parsing and command routing.
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// This is separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "claudebridge",
		Short: "claudebridge - OpenAI-compatible gateway for Claude",
		Long: `claudebridge serves the OpenAI Chat Completions API in front of a local
Claude runtime. Point any OpenAI client at it to use Claude without code
changes: streaming, sessions, model discovery and validation included.

Backends: Claude Code CLI (default), Anthropic SDK
Auth providers: Anthropic API key, AWS Bedrock, Google Vertex AI, Claude CLI login

Documentation: https://github.com/haasonsaas/claudebridge`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		// SilenceUsage prevents printing usage on every error.
		SilenceUsage: true,
	}

	// Attach all subcommands.
	rootCmd.AddCommand(
		buildServeCmd(),
		buildDoctorCmd(),
		buildVersionCmd(),
	)

	return rootCmd
}

// resolveConfigPath applies the CLAUDEBRIDGE_CONFIG override when the flag was
// left at its default.
func resolveConfigPath(path string) string {
	if strings.TrimSpace(path) == "" || path == defaultConfigName {
		if env := strings.TrimSpace(os.Getenv("CLAUDEBRIDGE_CONFIG")); env != "" {
			return env
		}
		return defaultConfigName
	}
	return path
}
