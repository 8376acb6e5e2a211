package handlers

import (
	"context"
	"fmt"

	"github.com/nimbusphere/nimbus/internal/config"
)

// Deploy handles the deploy command: it uploads an application bundle
// and prints the serving address once the application answers.
func Deploy(ctx context.Context, configPath string, flags *config.Options) error {
	opts, err := loadOptions(configPath, flags)
	if err != nil {
		return err
	}
	if opts.File == "" {
		return fmt.Errorf("an application bundle path is required")
	}

	deployer, err := newDeployer(opts)
	if err != nil {
		return err
	}

	serving, err := deployer.UploadApp(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Println(okStyle.Render("Application deployed"))
	fmt.Printf("  serving at %s\n", addressStyle.Render("http://"+serving))
	return nil
}
