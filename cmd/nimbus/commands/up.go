package commands

import (
	"github.com/spf13/cobra"

	"github.com/nimbusphere/nimbus/cmd/nimbus/handlers"
	"github.com/nimbusphere/nimbus/internal/config"
)

// Up returns the up command.
func Up() *cobra.Command {
	var configPath string
	var flags config.Options
	var nodeFlags []string

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Start a new deployment",
		Long: `Up provisions a deployment: it plans the topology, starts the head
node, waits for the platform services, creates the admin account, and
blocks until every node finished initializing.

Examples:
  nimbus up -c nimbus.yaml
  nimbus up -k demo --node head=192.168.1.10 --node database=192.168.1.11 --node compute=192.168.1.12
  nimbus up -k demo --infrastructure hcloud --min 3 --max 3 --image ubuntu-24.04`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			nodes, err := parseNodeFlags(nodeFlags)
			if err != nil {
				return err
			}
			flags.Nodes = nodes
			return handlers.Up(cmd.Context(), configPath, &flags)
		},
	}

	bindCommonFlags(cmd, &configPath, &flags)
	cmd.Flags().StringArrayVar(&nodeFlags, "node", nil, "Role placement as role=addr[,addr...] (repeatable)")
	cmd.Flags().StringVar(&flags.Infrastructure, "infrastructure", "", "Infrastructure kind: none (default) or hcloud")
	cmd.Flags().IntVar(&flags.MinNodes, "min", 0, "Minimum node count for cloud layouts")
	cmd.Flags().IntVar(&flags.MaxNodes, "max", 0, "Maximum node count for cloud layouts")
	cmd.Flags().IntVar(&flags.ReplicationFactor, "replication", 0, "Database replication factor")
	cmd.Flags().StringVar(&flags.MachineImage, "image", "", "Machine image for cloud nodes")
	cmd.Flags().StringVar(&flags.ServerType, "server-type", "", "Server type for cloud nodes")
	cmd.Flags().StringVar(&flags.Location, "location", "", "Cloud location")
	cmd.Flags().StringVar(&flags.CloudToken, "cloud-token", "", "Cloud API token (or "+handlers.TokenEnvVar+")")
	cmd.Flags().StringVar(&flags.AdminUser, "admin-user", "", "Admin account email")
	cmd.Flags().StringVar(&flags.AdminPassword, "admin-password", "", "Admin account password")
	cmd.Flags().BoolVar(&flags.Test, "test", false, "Use non-interactive test credentials")
	cmd.Flags().BoolVar(&flags.Force, "force", false, "Start even if a metadata record exists")

	return cmd
}
