package handlers

import (
	"context"
	"fmt"

	"github.com/nimbusphere/nimbus/internal/config"
)

// Up handles the up command: it starts a new deployment and prints where
// to reach it.
func Up(ctx context.Context, configPath string, flags *config.Options) error {
	opts, err := loadOptions(configPath, flags)
	if err != nil {
		return err
	}
	if err := opts.ValidateForStart(); err != nil {
		return err
	}

	deployer, err := newDeployer(opts)
	if err != nil {
		return err
	}

	result, err := deployer.RunInstances(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("Deployment %q is running", opts.Keyname)))
	fmt.Printf("  head node: %s\n", addressStyle.Render(result.HeadNode))
	if result.InstanceID != "" {
		fmt.Printf("  instance:  %s\n", result.InstanceID)
	}
	fmt.Printf("  dashboard: %s\n", addressStyle.Render("http://"+result.Dashboard))
	return nil
}
