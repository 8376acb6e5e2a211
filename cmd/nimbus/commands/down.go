package commands

import (
	"github.com/spf13/cobra"

	"github.com/nimbusphere/nimbus/cmd/nimbus/handlers"
	"github.com/nimbusphere/nimbus/internal/config"
)

// Down returns the down command.
func Down() *cobra.Command {
	var configPath string
	var flags config.Options

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Terminate a deployment",
		Long: `Down tears the deployment down and deletes the local record. Cloud
instances are terminated; virtualized machines keep running with the
platform services stopped. The local record is removed even when the
remote teardown only partially succeeds, so a stuck deployment never
blocks a fresh up.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Down(cmd.Context(), configPath, &flags)
		},
	}

	bindCommonFlags(cmd, &configPath, &flags)
	cmd.Flags().StringVar(&flags.CloudToken, "cloud-token", "", "Cloud API token (or "+handlers.TokenEnvVar+")")

	return cmd
}
