// Package main is the entry point for the addonctl CLI.
//
// addonctl provisions and maintains cluster add-ons (ingress controller,
// log history, log storage bucket) for a DigitalOcean Kubernetes cluster
// from a declarative environment file.
//
// Commands: init, plan, apply, destroy, version.
//
// For detailed usage information, run:
//
//	addonctl --help
package main

import (
	"fmt"
	"os"

	"github.com/qovery/addonctl/cmd/addonctl/commands"
	"github.com/qovery/addonctl/internal/engine"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes. Configuration problems are distinguishable from runtime
// failures so wrappers can tell a broken environment file from a cluster
// that misbehaved.
const (
	exitRuntimeError = 1
	exitConfigError  = 2
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if engine.IsConfigurationError(err) {
			os.Exit(exitConfigError)
		}
		os.Exit(exitRuntimeError)
	}
}
