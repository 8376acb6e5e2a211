package handlers

import (
	"context"
	"fmt"

	"github.com/nimbusphere/nimbus/internal/config"
)

// Add handles the add command: it grows a running deployment by the
// requested nodes. The request returns as soon as the controller accepts
// it; `nimbus status` shows when the nodes are up.
func Add(ctx context.Context, configPath string, flags *config.Options) error {
	opts, err := loadOptions(configPath, flags)
	if err != nil {
		return err
	}
	deployer, err := newDeployer(opts)
	if err != nil {
		return err
	}

	if err := deployer.AddInstances(ctx, opts); err != nil {
		return err
	}
	fmt.Println(okStyle.Render("Role start requested.") + dimStyle.Render(" Run `nimbus status` to watch the new nodes come up."))
	return nil
}
