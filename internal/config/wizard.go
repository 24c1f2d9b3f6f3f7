package config

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"
)

var domainPattern = regexp.MustCompile(`^([a-z0-9-]+\.)+[a-z]{2,}$`)

// doRegions are the DigitalOcean datacenter slugs offered by the wizard.
var doRegions = []huh.Option[string]{
	huh.NewOption("Amsterdam (ams3)", "ams3"),
	huh.NewOption("Frankfurt (fra1)", "fra1"),
	huh.NewOption("London (lon1)", "lon1"),
	huh.NewOption("New York (nyc1)", "nyc1"),
	huh.NewOption("New York (nyc3)", "nyc3"),
	huh.NewOption("San Francisco (sfo3)", "sfo3"),
	huh.NewOption("Singapore (sgp1)", "sgp1"),
	huh.NewOption("Toronto (tor1)", "tor1"),
}

// RunWizard collects an environment configuration interactively.
func RunWizard(ctx context.Context) (*Config, error) {
	cfg := &Config{}
	cfg.Cluster.Region = "ams3"
	cfg.Addons.LogHistoryEnabled = true
	stateBackend := StateBackendLocal

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cluster id").
				Description("The short cluster identifier (lowercase, DNS-safe)").
				Placeholder("abc123").
				Value(&cfg.Cluster.ID).
				Validate(validateWizardClusterID),
		),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Region").
				Description("DigitalOcean datacenter running the cluster").
				Options(doRegions...).
				Value(&cfg.Cluster.Region),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Base domain").
				Description("Ingress hosts live under *.<cluster id>.<base domain>").
				Placeholder("example.com").
				Value(&cfg.Cluster.BaseDomain).
				Validate(validateWizardDomain),
		),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable log history?").
				Description("Runs Loki and archives logs to a Spaces bucket").
				Value(&cfg.Addons.LogHistoryEnabled),
		),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("State backend").
				Description("Where apply records are persisted").
				Options(
					huh.NewOption("Local file", StateBackendLocal),
					huh.NewOption("Spaces bucket", StateBackendSpaces),
				).
				Value(&stateBackend),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("wizard canceled: %w", err)
	}

	cfg.State.Backend = stateBackend
	if stateBackend == StateBackendSpaces {
		// The log bucket doubles as the record location.
		cfg.State.Bucket = "qovery-logs-" + cfg.Cluster.ID
	}
	cfg.applyDefaults()
	return cfg, nil
}

func validateWizardClusterID(s string) error {
	if s == "" {
		return fmt.Errorf("cluster id is required")
	}
	if !clusterIDPattern.MatchString(s) {
		return fmt.Errorf("use lowercase letters, digits and dashes")
	}
	return nil
}

func validateWizardDomain(s string) error {
	if !domainPattern.MatchString(strings.ToLower(s)) {
		return fmt.Errorf("enter a domain like example.com")
	}
	return nil
}

// RenderYAML writes the configuration as a commented environment file.
func (c *Config) RenderYAML() []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "cluster:\n")
	fmt.Fprintf(&b, "  id: %s\n", c.Cluster.ID)
	fmt.Fprintf(&b, "  region: %s\n", c.Cluster.Region)
	fmt.Fprintf(&b, "  base_domain: %s\n", c.Cluster.BaseDomain)
	if c.Cluster.Kubeconfig != "" {
		fmt.Fprintf(&b, "  kubeconfig: %s\n", c.Cluster.Kubeconfig)
	}

	fmt.Fprintf(&b, "\naddons:\n")
	fmt.Fprintf(&b, "  log_history_enabled: %t\n", c.Addons.LogHistoryEnabled)

	fmt.Fprintf(&b, "\n# Engine tuning, all optional.\n")
	fmt.Fprintf(&b, "engine:\n")
	fmt.Fprintf(&b, "  atomic: %t\n", c.Engine.Atomic)
	if c.Engine.Concurrency > 0 {
		fmt.Fprintf(&b, "  concurrency: %d\n", c.Engine.Concurrency)
	}
	if c.Engine.MaxHistory > 0 {
		fmt.Fprintf(&b, "  max_history: %d\n", c.Engine.MaxHistory)
	}

	fmt.Fprintf(&b, "\nstate:\n")
	fmt.Fprintf(&b, "  backend: %s\n", c.State.Backend)
	switch c.State.Backend {
	case StateBackendSpaces:
		fmt.Fprintf(&b, "  bucket: %s\n", c.State.Bucket)
		if c.State.Key != "" {
			fmt.Fprintf(&b, "  key: %s\n", c.State.Key)
		}
	default:
		fmt.Fprintf(&b, "  path: %s\n", c.State.Path)
	}

	fmt.Fprintf(&b, "\n# Secret parameters (Spaces keys) come from %s* environment\n", DefaultSecretPrefix)
	fmt.Fprintf(&b, "# variables by default; set source: kubernetes to read them from a\n")
	fmt.Fprintf(&b, "# cluster secret instead.\n")
	fmt.Fprintf(&b, "secrets:\n")
	fmt.Fprintf(&b, "  source: %s\n", c.Secrets.Source)
	switch c.Secrets.Source {
	case SecretSourceKubernetes:
		fmt.Fprintf(&b, "  namespace: %s\n", c.Secrets.Namespace)
		fmt.Fprintf(&b, "  name: %s\n", c.Secrets.Name)
	default:
		fmt.Fprintf(&b, "  prefix: %s\n", c.Secrets.Prefix)
	}

	return []byte(b.String())
}
