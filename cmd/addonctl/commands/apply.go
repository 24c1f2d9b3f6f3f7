package commands

import (
	"github.com/spf13/cobra"

	"github.com/qovery/addonctl/cmd/addonctl/handlers"
)

// Apply returns the command that applies the configured add-ons.
//
// Optional flags:
//
//	--config, -c: Path to the environment YAML file (default: addonctl.yaml)
//
// Environment variables:
//
//	ADDONCTL_SPACES_ACCESS_KEY_ID / ADDONCTL_SPACES_SECRET_ACCESS_KEY:
//	Spaces credentials when secrets.source is env (default prefix).
func Apply() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update the cluster add-ons",
		Long: `Create or update the cluster add-ons.

This command plans the configured add-ons, applies what changed in
dependency order and removes what is no longer configured. Protected
resources such as the log bucket are never deleted.

Examples:
  # Apply using addonctl.yaml in the current directory
  addonctl apply

  # Apply using a specific environment file
  addonctl apply -c production.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Apply(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to environment file (default: addonctl.yaml)")

	return cmd
}
