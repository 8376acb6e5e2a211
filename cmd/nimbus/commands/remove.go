package commands

import (
	"github.com/spf13/cobra"

	"github.com/nimbusphere/nimbus/cmd/nimbus/handlers"
	"github.com/nimbusphere/nimbus/internal/config"
)

// Remove returns the remove command.
func Remove() *cobra.Command {
	var configPath string
	var flags config.Options

	cmd := &cobra.Command{
		Use:   "remove <app>",
		Short: "Remove a hosted application",
		Long: `Remove stops an application and waits for it to drain. It asks for
confirmation unless --yes is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.AppName = args[0]
			return handlers.Remove(cmd.Context(), configPath, &flags)
		},
	}

	bindCommonFlags(cmd, &configPath, &flags)
	cmd.Flags().BoolVarP(&flags.Confirm, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
