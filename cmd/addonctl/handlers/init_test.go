package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qovery/addonctl/internal/config"
)

func swapInitFactories(t *testing.T, tty bool, wizard func(context.Context) (*config.Config, error)) {
	t.Helper()
	origWizard := runWizard
	origTerminal := isTerminal
	t.Cleanup(func() {
		runWizard = origWizard
		isTerminal = origTerminal
	})
	isTerminal = func() bool { return tty }
	if wizard != nil {
		runWizard = wizard
	}
}

func TestInit_NonInteractiveWritesExample(t *testing.T) {
	swapInitFactories(t, false, nil)
	output := filepath.Join(t.TempDir(), "addonctl.yaml")

	require.NoError(t, Init(context.Background(), output, false))

	written, err := os.ReadFile(output)
	require.NoError(t, err)

	cfg, err := config.Parse(written)
	require.NoError(t, err)
	assert.Equal(t, "my-cluster", cfg.Cluster.ID)
	assert.Equal(t, config.StateBackendLocal, cfg.State.Backend)
}

func TestInit_RefusesOverwriteWithoutForce(t *testing.T) {
	swapInitFactories(t, false, nil)
	output := filepath.Join(t.TempDir(), "addonctl.yaml")
	require.NoError(t, os.WriteFile(output, []byte("cluster: {}\n"), 0o600))

	err := Init(context.Background(), output, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	require.NoError(t, Init(context.Background(), output, true))
}

func TestInit_InteractiveUsesWizard(t *testing.T) {
	wizardCfg, err := config.Parse([]byte(`
cluster:
  id: wizard-cluster
  region: fra1
  base_domain: example.org
`))
	require.NoError(t, err)
	swapInitFactories(t, true, func(context.Context) (*config.Config, error) {
		return wizardCfg, nil
	})

	output := filepath.Join(t.TempDir(), "addonctl.yaml")
	require.NoError(t, Init(context.Background(), output, false))

	written, err := os.ReadFile(output)
	require.NoError(t, err)

	cfg, err := config.Parse(written)
	require.NoError(t, err)
	assert.Equal(t, "wizard-cluster", cfg.Cluster.ID)
	assert.Equal(t, "fra1", cfg.Cluster.Region)
}
