package commands

import (
	"github.com/spf13/cobra"

	"github.com/qovery/addonctl/cmd/addonctl/handlers"
)

// Init returns the command that creates an environment file.
//
// In a terminal it runs an interactive wizard; otherwise it writes a
// commented example file to edit by hand.
func Init() *cobra.Command {
	var output string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an environment file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), output, force)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "addonctl.yaml", "Where to write the environment file")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}
