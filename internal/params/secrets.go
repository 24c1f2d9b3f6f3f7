package params

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// StaticSecrets serves secrets from an in-memory map. Useful for tests and
// for values already present in the environment configuration.
type StaticSecrets map[string]string

// Get implements SecretStore.
func (s StaticSecrets) Get(_ context.Context, name string) (string, error) {
	value, ok := s[name]
	if !ok {
		return "", fmt.Errorf("secret %s not found", name)
	}
	return value, nil
}

// EnvSecrets reads secrets from process environment variables. The parameter
// name is upper-cased and prefixed, e.g. spaces_access_key_id with prefix
// "ADDONCTL_" is read from ADDONCTL_SPACES_ACCESS_KEY_ID.
type EnvSecrets struct {
	Prefix string
}

// Get implements SecretStore.
func (s EnvSecrets) Get(_ context.Context, name string) (string, error) {
	key := s.Prefix + strings.ToUpper(name)
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", fmt.Errorf("environment variable %s is not set", key)
	}
	return value, nil
}

// SecretReader is the subset of the Kubernetes client needed to read a
// secret value from the cluster.
type SecretReader interface {
	SecretValue(ctx context.Context, namespace, name, key string) (string, error)
}

// KubernetesSecrets fetches secrets from a Kubernetes secret object, mapping
// parameter names to the secret's data keys.
type KubernetesSecrets struct {
	Reader    SecretReader
	Namespace string
	Name      string
}

// Get implements SecretStore.
func (s KubernetesSecrets) Get(ctx context.Context, name string) (string, error) {
	value, err := s.Reader.SecretValue(ctx, s.Namespace, s.Name, name)
	if err != nil {
		return "", fmt.Errorf("failed to read secret %s/%s key %s: %w", s.Namespace, s.Name, name, err)
	}
	return value, nil
}
