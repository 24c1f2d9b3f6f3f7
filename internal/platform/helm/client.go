// Package helm installs and upgrades Helm releases programmatically through
// the Helm v3 action API, using in-memory kubeconfig bytes.
package helm

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/repo"
)

// ReleaseSpec describes one release to install or upgrade.
type ReleaseSpec struct {
	Name      string
	Namespace string
	RepoURL   string
	Chart     string
	Version   string
	Values    Values

	// Atomic rolls a failed install or upgrade back to the prior release
	// state instead of leaving it partially applied.
	Atomic bool

	// MaxHistory bounds the number of stored release revisions. Zero keeps
	// the Helm default.
	MaxHistory int

	// Timeout bounds the wait for release resources to become ready.
	Timeout time.Duration
}

func (s ReleaseSpec) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return 10 * time.Minute
}

// Client runs Helm actions against a cluster. Release storage follows the
// release namespace, so an action configuration is kept per namespace.
type Client struct {
	kubeconfig       []byte
	defaultNamespace string

	mu      sync.Mutex
	configs map[string]*action.Configuration
}

// NewClient creates a Helm client from kubeconfig bytes. The default
// namespace is used for releases that do not name one.
func NewClient(kubeconfig []byte, defaultNamespace string) (*Client, error) {
	if len(kubeconfig) == 0 {
		return nil, fmt.Errorf("kubeconfig is required")
	}
	if defaultNamespace == "" {
		defaultNamespace = "default"
	}
	return &Client{
		kubeconfig:       kubeconfig,
		defaultNamespace: defaultNamespace,
		configs:          map[string]*action.Configuration{},
	}, nil
}

func (c *Client) config(namespace string) (*action.Configuration, error) {
	if namespace == "" {
		namespace = c.defaultNamespace
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg, ok := c.configs[namespace]; ok {
		return cfg, nil
	}

	cfg := new(action.Configuration)
	restGetter := NewInMemoryRESTClientGetter(c.kubeconfig, namespace)

	// Helm's debug logging goes nowhere; callers log at the engine level.
	if err := cfg.Init(restGetter, namespace, "secret", func(string, ...interface{}) {}); err != nil {
		return nil, fmt.Errorf("failed to initialize helm action config for namespace %s: %w", namespace, err)
	}

	c.configs[namespace] = cfg
	return cfg, nil
}

// InstallOrUpgrade installs the release, or upgrades it when a prior
// revision exists.
func (c *Client) InstallOrUpgrade(ctx context.Context, spec ReleaseSpec) (*release.Release, error) {
	exists, err := c.ReleaseExists(spec.Name, spec.Namespace)
	if err != nil {
		return nil, err
	}
	if exists {
		return c.upgrade(ctx, spec)
	}
	return c.install(ctx, spec)
}

func (c *Client) install(ctx context.Context, spec ReleaseSpec) (*release.Release, error) {
	cfg, err := c.config(spec.Namespace)
	if err != nil {
		return nil, err
	}

	client := action.NewInstall(cfg)
	client.ReleaseName = spec.Name
	client.Namespace = c.namespaceOr(spec.Namespace)
	client.CreateNamespace = true
	client.Version = spec.Version
	client.Wait = true
	client.Atomic = spec.Atomic
	client.Timeout = spec.timeout()

	ch, err := c.loadChart(spec)
	if err != nil {
		return nil, err
	}

	return client.RunWithContext(ctx, ch, spec.Values)
}

func (c *Client) upgrade(ctx context.Context, spec ReleaseSpec) (*release.Release, error) {
	cfg, err := c.config(spec.Namespace)
	if err != nil {
		return nil, err
	}

	client := action.NewUpgrade(cfg)
	client.Namespace = c.namespaceOr(spec.Namespace)
	client.Version = spec.Version
	client.Wait = true
	client.Atomic = spec.Atomic
	client.MaxHistory = spec.MaxHistory
	client.Timeout = spec.timeout()
	client.ReuseValues = false

	ch, err := c.loadChart(spec)
	if err != nil {
		return nil, err
	}

	return client.RunWithContext(ctx, spec.Name, ch, spec.Values)
}

// Uninstall removes a release and waits for its resources to be deleted.
func (c *Client) Uninstall(name, namespace string) error {
	cfg, err := c.config(namespace)
	if err != nil {
		return err
	}

	client := action.NewUninstall(cfg)
	client.Wait = true
	client.Timeout = 5 * time.Minute

	_, err = client.Run(name)
	return err
}

// ReleaseExists reports whether a release has at least one stored revision.
func (c *Client) ReleaseExists(name, namespace string) (bool, error) {
	cfg, err := c.config(namespace)
	if err != nil {
		return false, err
	}

	hist := action.NewHistory(cfg)
	hist.Max = 1
	if _, err := hist.Run(name); err != nil {
		return false, nil
	}
	return true, nil
}

func (c *Client) namespaceOr(namespace string) string {
	if namespace == "" {
		return c.defaultNamespace
	}
	return namespace
}

// loadChart locates the chart in its repository index and pulls the
// archive.
func (c *Client) loadChart(spec ReleaseSpec) (*chart.Chart, error) {
	settings := cli.New()
	getters := getter.All(settings)

	chartURL, err := repo.FindChartInRepoURL(
		spec.RepoURL,
		spec.Chart,
		spec.Version,
		"", "", "",
		getters,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find chart %s in repo %s: %w", spec.Chart, spec.RepoURL, err)
	}

	parsed, err := url.Parse(chartURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chart URL %s: %w", chartURL, err)
	}
	g, err := getters.ByScheme(parsed.Scheme)
	if err != nil {
		return nil, fmt.Errorf("no getter for chart URL %s: %w", chartURL, err)
	}

	archive, err := g.Get(chartURL, getter.WithURL(spec.RepoURL))
	if err != nil {
		return nil, fmt.Errorf("failed to download chart %s: %w", chartURL, err)
	}

	return loader.LoadArchive(archive)
}
