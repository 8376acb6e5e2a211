// Package main is the entry point for the nimbus CLI.
//
// nimbus provisions, scales, inspects, and tears down a multi-node
// distributed platform deployment, and deploys applications onto it.
//
// Commands: up, add, status, logs, deploy, remove, passwd, down.
//
// For detailed usage information, run:
//
//	nimbus --help
package main

import (
	"fmt"
	"os"

	"github.com/nimbusphere/nimbus/cmd/nimbus/commands"
	"github.com/nimbusphere/nimbus/internal/orchestration"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(orchestration.ExitCode(err))
	}
}
