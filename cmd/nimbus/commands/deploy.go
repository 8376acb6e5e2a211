package commands

import (
	"github.com/spf13/cobra"

	"github.com/nimbusphere/nimbus/cmd/nimbus/handlers"
	"github.com/nimbusphere/nimbus/internal/config"
)

// Deploy returns the deploy command.
func Deploy() *cobra.Command {
	var configPath string
	var flags config.Options

	cmd := &cobra.Command{
		Use:   "deploy <bundle>",
		Short: "Deploy an application bundle to a running deployment",
		Long: `Deploy uploads an application to the deployment and waits until it
answers on its serving port. The bundle is a directory or a .tar.gz
archive containing an app.yaml manifest.

Examples:
  nimbus deploy ./guestbook -k demo
  nimbus deploy guestbook.tar.gz -k demo --email owner@example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.File = args[0]
			return handlers.Deploy(cmd.Context(), configPath, &flags)
		},
	}

	bindCommonFlags(cmd, &configPath, &flags)
	cmd.Flags().StringVar(&flags.Email, "email", "", "Owning account for the application")
	cmd.Flags().BoolVar(&flags.Test, "test", false, "Use non-interactive test credentials")
	cmd.Flags().StringVar(&flags.CloudToken, "cloud-token", "", "Cloud API token (or "+handlers.TokenEnvVar+")")

	return cmd
}
