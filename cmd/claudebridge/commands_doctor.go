package main

import (
	"github.com/spf13/cobra"
)

// =============================================================================
// Doctor Command
// =============================================================================

// buildDoctorCmd creates the "doctor" command for runtime and auth diagnosis.
func buildDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose Claude runtime discovery and authentication",
		Long: `Inspect the environment the serve command would run in: whether the
Claude runtime backend can be invoked, which authentication provider
resolves, and what the effective configuration looks like.

Exits non-zero when the runtime is unavailable or no provider resolves.`,
		Example: `  # Diagnose with default config
  claudebridge doctor

  # Diagnose a production config
  claudebridge doctor --config /etc/claudebridge/production.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath = resolveConfigPath(configPath)
			return runDoctor(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigName,
		"Path to YAML configuration file")

	return cmd
}

// =============================================================================
// Version Command
// =============================================================================

// buildVersionCmd creates the "version" command printing build metadata.
func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd)
		},
	}
}
