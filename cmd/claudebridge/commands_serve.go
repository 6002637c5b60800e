package main

import (
	"github.com/spf13/cobra"
)

// =============================================================================
// Serve Command
// =============================================================================

// buildServeCmd creates the "serve" command that starts the gateway server.
// This is the primary command for running claudebridge in production.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the claudebridge gateway server",
		Long: `Start the OpenAI-compatible gateway server in front of the Claude runtime.

The server will:
1. Load configuration from the specified file (or claudebridge.yaml)
2. Resolve Claude authentication (API key, Bedrock, Vertex, CLI login)
3. Start the session store reaper and the credentials file watcher
4. Initialize the Claude runtime backend (CLI or SDK)
5. Serve /v1/chat/completions, /v1/models, /v1/sessions, /v1/auth/status,
   /health and /metrics

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with default config
  claudebridge serve

  # Start with custom config
  claudebridge serve --config /etc/claudebridge/production.yaml

  # Start with debug logging
  claudebridge serve --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath = resolveConfigPath(configPath)
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigName,
		"Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false,
		"Enable debug logging (verbose output)")

	return cmd
}
