package config

import (
	"fmt"
	"regexp"
)

var clusterIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Validate checks the configuration for problems no run can recover from.
func (c *Config) Validate() error {
	if c.Cluster.ID == "" {
		return fmt.Errorf("cluster.id is required")
	}
	if !clusterIDPattern.MatchString(c.Cluster.ID) {
		return fmt.Errorf("cluster.id %q must be lowercase alphanumeric with dashes", c.Cluster.ID)
	}
	if c.Cluster.Region == "" {
		return fmt.Errorf("cluster.region is required")
	}
	if c.Cluster.BaseDomain == "" {
		return fmt.Errorf("cluster.base_domain is required")
	}

	if c.Engine.Concurrency < 0 {
		return fmt.Errorf("engine.concurrency must not be negative")
	}
	if c.Engine.MaxHistory < 0 {
		return fmt.Errorf("engine.max_history must not be negative")
	}

	switch c.State.Backend {
	case StateBackendLocal:
		if c.State.Path == "" {
			return fmt.Errorf("state.path is required for the local backend")
		}
	case StateBackendSpaces:
		if c.State.Bucket == "" {
			return fmt.Errorf("state.bucket is required for the spaces backend")
		}
	default:
		return fmt.Errorf("state.backend %q is not supported (local, spaces)", c.State.Backend)
	}

	switch c.Secrets.Source {
	case SecretSourceEnv:
	case SecretSourceKubernetes:
		if c.Secrets.Namespace == "" || c.Secrets.Name == "" {
			return fmt.Errorf("secrets.namespace and secrets.name are required for the kubernetes source")
		}
	default:
		return fmt.Errorf("secrets.source %q is not supported (env, kubernetes)", c.Secrets.Source)
	}

	return nil
}
