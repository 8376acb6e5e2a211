package handlers

import (
	"context"
	"fmt"

	"github.com/nimbusphere/nimbus/internal/config"
)

// Status handles the status command: it prints each node's reported
// state, marking nodes that could not be queried.
func Status(ctx context.Context, configPath string, flags *config.Options) error {
	opts, err := loadOptions(configPath, flags)
	if err != nil {
		return err
	}

	deployer, err := newDeployer(opts)
	if err != nil {
		return err
	}

	report, err := deployer.DescribeInstances(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("Deployment %q", report.Keyname)))
	fmt.Printf("  head node: %s\n", addressStyle.Render(report.HeadNode))
	for _, node := range report.Nodes {
		if node.Err != nil {
			fmt.Printf("  %s  %s\n", node.Addr, warnStyle.Render(fmt.Sprintf("unreachable: %v", node.Err)))
			continue
		}
		fmt.Printf("  %s  %s\n", node.Addr, okStyle.Render(node.Status))
	}
	if warnings := report.Warnings(); len(warnings) > 0 {
		fmt.Println(warnStyle.Render(fmt.Sprintf("%d of %d nodes could not be queried", len(warnings), len(report.Nodes))))
	}
	return nil
}
