package commands

import (
	"github.com/spf13/cobra"

	"github.com/nimbusphere/nimbus/cmd/nimbus/handlers"
	"github.com/nimbusphere/nimbus/internal/config"
)

// Add returns the add command.
func Add() *cobra.Command {
	var configPath string
	var flags config.Options
	var nodeFlags []string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add nodes to a running deployment",
		Long: `Add grows a running deployment by the given nodes. The head role
cannot be added; only up may introduce one.

Example:
  nimbus add -k demo --node compute=192.168.1.13,192.168.1.14`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			nodes, err := parseNodeFlags(nodeFlags)
			if err != nil {
				return err
			}
			flags.Nodes = nodes
			return handlers.Add(cmd.Context(), configPath, &flags)
		},
	}

	bindCommonFlags(cmd, &configPath, &flags)
	cmd.Flags().StringArrayVar(&nodeFlags, "node", nil, "Role placement as role=addr[,addr...] (repeatable)")
	cmd.Flags().StringVar(&flags.CloudToken, "cloud-token", "", "Cloud API token (or "+handlers.TokenEnvVar+")")

	return cmd
}
