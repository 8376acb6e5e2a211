package handlers

import (
	"context"
	"fmt"

	"github.com/nimbusphere/nimbus/internal/config"
)

// Remove handles the remove command: it stops a hosted application and
// waits for it to drain.
func Remove(ctx context.Context, configPath string, flags *config.Options) error {
	opts, err := loadOptions(configPath, flags)
	if err != nil {
		return err
	}
	if opts.AppName == "" {
		return fmt.Errorf("an application name is required")
	}

	deployer, err := newDeployer(opts)
	if err != nil {
		return err
	}

	if err := deployer.RemoveApp(ctx, opts); err != nil {
		return err
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("Application %q removed", opts.AppName)))
	return nil
}
