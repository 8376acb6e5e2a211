package commands

import (
	"github.com/spf13/cobra"

	"github.com/nimbusphere/nimbus/cmd/nimbus/handlers"
	"github.com/nimbusphere/nimbus/internal/config"
)

// Logs returns the logs command.
func Logs() *cobra.Command {
	var configPath string
	var flags config.Options

	cmd := &cobra.Command{
		Use:   "logs <destination>",
		Short: "Gather every node's platform logs into a local directory",
		Long: `Logs copies the platform log directory from each node into
destination/<address>/. The destination must not already exist. With
--archive-bucket the gathered tree is also uploaded to S3-compatible
object storage.

Examples:
  nimbus logs ./demo-logs -k demo
  nimbus logs ./demo-logs -k demo --archive-bucket nimbus-logs --archive-endpoint https://objects.example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.Destination = args[0]
			return handlers.Logs(cmd.Context(), configPath, &flags)
		},
	}

	bindCommonFlags(cmd, &configPath, &flags)
	cmd.Flags().StringVar(&flags.Archive.Bucket, "archive-bucket", "", "Archive gathered logs to this bucket")
	cmd.Flags().StringVar(&flags.Archive.Endpoint, "archive-endpoint", "", "S3-compatible endpoint for the archive")
	cmd.Flags().StringVar(&flags.Archive.Region, "archive-region", "", "Region for the archive bucket")
	cmd.Flags().StringVar(&flags.Archive.AccessKey, "archive-access-key", "", "Access key for the archive")
	cmd.Flags().StringVar(&flags.Archive.SecretKey, "archive-secret-key", "", "Secret key for the archive")
	cmd.Flags().StringVar(&flags.CloudToken, "cloud-token", "", "Cloud API token (or "+handlers.TokenEnvVar+")")

	return cmd
}
