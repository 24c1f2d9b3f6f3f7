package commands

import (
	"github.com/spf13/cobra"

	"github.com/qovery/addonctl/cmd/addonctl/handlers"
)

// Destroy returns the command that removes the managed add-ons.
func Destroy() *cobra.Command {
	var configPath string
	var yes bool

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Remove the managed add-ons",
		Long: `Remove the managed add-ons.

Every tracked resource is removed from the cluster except protected ones:
the log bucket is kept so log history survives the cluster itself. Its
record is dropped from the state file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to environment file (default: addonctl.yaml)")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")

	return cmd
}
