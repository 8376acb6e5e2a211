package commands

import (
	"github.com/spf13/cobra"

	"github.com/nimbusphere/nimbus/cmd/nimbus/handlers"
	"github.com/nimbusphere/nimbus/internal/config"
)

// Passwd returns the passwd command.
func Passwd() *cobra.Command {
	var configPath string
	var flags config.Options

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Reset a platform account's password",
		Long: `Passwd updates an account's password through the registry. The
password is hashed locally; only the digest is transmitted. Without
explicit flags the account and new password are prompted for.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Passwd(cmd.Context(), configPath, &flags)
		},
	}

	bindCommonFlags(cmd, &configPath, &flags)
	cmd.Flags().StringVar(&flags.AdminUser, "user", "", "Account email")
	cmd.Flags().StringVar(&flags.AdminPassword, "password", "", "New password")
	cmd.Flags().BoolVar(&flags.Test, "test", false, "Use non-interactive test credentials")

	return cmd
}
