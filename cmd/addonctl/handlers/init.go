package handlers

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/qovery/addonctl/internal/config"
)

// Factory variables replaced in tests.
var (
	runWizard  = config.RunWizard
	writeFile  = os.WriteFile
	isTerminal = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
)

// Init writes an environment file. In a terminal the values come from an
// interactive wizard; otherwise a commented example is written for hand
// editing.
func Init(ctx context.Context, output string, force bool) error {
	if _, err := os.Stat(output); err == nil && !force {
		return fmt.Errorf("%s already exists; pass --force to overwrite", output)
	}

	var cfg *config.Config
	if isTerminal() {
		wizardCfg, err := runWizard(ctx)
		if err != nil {
			return err
		}
		cfg = wizardCfg
	} else {
		cfg = exampleConfig()
	}

	if err := writeFile(output, cfg.RenderYAML(), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	log.Printf("Wrote %s", output)
	log.Printf("Set %sSPACES_ACCESS_KEY_ID and %sSPACES_SECRET_ACCESS_KEY, then run 'addonctl apply'",
		config.DefaultSecretPrefix, config.DefaultSecretPrefix)
	return nil
}

// exampleConfig is the non-interactive starting point.
func exampleConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Cluster.ID = "my-cluster"
	cfg.Cluster.Region = "ams3"
	cfg.Cluster.BaseDomain = "example.com"
	cfg.Addons.LogHistoryEnabled = true
	cfg.State.Backend = config.StateBackendLocal
	cfg.State.Path = config.DefaultStatePath
	cfg.Secrets.Source = config.SecretSourceEnv
	cfg.Secrets.Prefix = config.DefaultSecretPrefix
	return cfg
}
