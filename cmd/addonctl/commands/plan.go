package commands

import (
	"github.com/spf13/cobra"

	"github.com/qovery/addonctl/cmd/addonctl/handlers"
)

// Plan returns the command that shows the planned add-on changes without
// touching the cluster.
func Plan() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what apply would change",
		Long: `Show what apply would change.

This command resolves the configured add-ons, diffs them against the
persisted apply records and prints the resulting create, update, skip and
delete operations in the order apply would run them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Plan(cmd.Context(), cmd.OutOrStdout(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to environment file (default: addonctl.yaml)")

	return cmd
}
