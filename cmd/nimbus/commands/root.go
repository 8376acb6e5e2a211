// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing and flag binding. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nimbusphere/nimbus/internal/config"
)

// Root returns the root command for the nimbus CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nimbus",
		Short: "Provision and operate a distributed platform deployment",
		Long: `nimbus drives a multi-node platform deployment from a declarative
set of options: start it, scale it, inspect it, deploy applications onto
it, and tear it down.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(Up())
	cmd.AddCommand(Add())
	cmd.AddCommand(Status())
	cmd.AddCommand(Logs())
	cmd.AddCommand(Deploy())
	cmd.AddCommand(Remove())
	cmd.AddCommand(Passwd())
	cmd.AddCommand(Down())
	cmd.AddCommand(Version())

	return cmd
}

// bindCommonFlags attaches the flags every verb accepts.
func bindCommonFlags(cmd *cobra.Command, configPath *string, flags *config.Options) {
	cmd.Flags().StringVarP(configPath, "config", "c", "", "Path to deployment file (default: nimbus.yaml if present)")
	cmd.Flags().StringVarP(&flags.Keyname, "keyname", "k", "", "Deployment identifier")
	cmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")
}

// parseNodeFlags turns repeated role=addr1,addr2 values into a role map.
func parseNodeFlags(values []string) (map[string][]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	nodes := make(map[string][]string)
	for _, v := range values {
		role, addrs, ok := strings.Cut(v, "=")
		if !ok || role == "" || addrs == "" {
			return nil, fmt.Errorf("invalid --node value %q: expected role=addr[,addr...]", v)
		}
		for _, addr := range strings.Split(addrs, ",") {
			addr = strings.TrimSpace(addr)
			if addr == "" {
				continue
			}
			nodes[role] = append(nodes[role], addr)
		}
	}
	return nodes, nil
}
