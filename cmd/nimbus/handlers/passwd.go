package handlers

import (
	"context"
	"fmt"

	"github.com/nimbusphere/nimbus/internal/config"
)

// Passwd handles the passwd command: it updates a platform account's
// password through the registry.
func Passwd(ctx context.Context, configPath string, flags *config.Options) error {
	opts, err := loadOptions(configPath, flags)
	if err != nil {
		return err
	}

	deployer, err := newDeployer(opts)
	if err != nil {
		return err
	}

	if err := deployer.ResetPassword(ctx, opts); err != nil {
		return err
	}
	fmt.Println(okStyle.Render("Password updated"))
	return nil
}
