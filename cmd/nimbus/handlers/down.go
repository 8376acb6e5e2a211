package handlers

import (
	"context"
	"fmt"

	"github.com/nimbusphere/nimbus/internal/config"
)

// Down handles the down command: it tears the deployment down and
// removes the local record. Cloud instances are terminated; virtualized
// nodes keep running with platform services stopped.
func Down(ctx context.Context, configPath string, flags *config.Options) error {
	opts, err := loadOptions(configPath, flags)
	if err != nil {
		return err
	}
	deployer, err := newDeployer(opts)
	if err != nil {
		return err
	}

	if err := deployer.TerminateInstances(ctx, opts); err != nil {
		return err
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("Deployment %q terminated", opts.Keyname)))
	return nil
}
