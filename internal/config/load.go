package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Defaults applied by LoadFile when the file leaves fields unset.
const (
	DefaultStatePath    = "addonctl-state.json"
	DefaultSecretPrefix = "ADDONCTL_"
)

// LoadFile reads and parses the environment configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes configuration YAML, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &cfg,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build config decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.State.Backend == "" {
		c.State.Backend = StateBackendLocal
	}
	if c.State.Backend == StateBackendLocal && c.State.Path == "" {
		c.State.Path = DefaultStatePath
	}
	if c.Secrets.Source == "" {
		c.Secrets.Source = SecretSourceEnv
	}
	if c.Secrets.Source == SecretSourceEnv && c.Secrets.Prefix == "" {
		c.Secrets.Prefix = DefaultSecretPrefix
	}
}
