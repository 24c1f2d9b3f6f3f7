package addons

import (
	"context"
	"fmt"
	"strings"
	"time"

	"helm.sh/helm/v3/pkg/release"

	"github.com/qovery/addonctl/internal/platform/helm"
	"github.com/qovery/addonctl/internal/state"
	"github.com/qovery/addonctl/internal/template"
	"github.com/qovery/addonctl/internal/util/retry"
)

// Reserved helm_release attribute names. Everything under the values prefix
// becomes nested chart values.
const (
	attrChart      = "chart"
	attrRepository = "repository"
	attrVersion    = "version"
	attrNamespace  = "namespace"
	attrTimeout    = "timeout"

	valuesPrefix = "values."
)

// HelmReleaser is the subset of the helm client the applier needs.
type HelmReleaser interface {
	InstallOrUpgrade(ctx context.Context, spec helm.ReleaseSpec) (*release.Release, error)
	Uninstall(name, namespace string) error
	ReleaseExists(name, namespace string) (bool, error)
}

// HelmApplier applies helm_release resources through a helm client.
type HelmApplier struct {
	client     HelmReleaser
	atomic     bool
	maxHistory int
}

// NewHelmApplier wraps a helm client. Atomic rolls failed upgrades back and
// maxHistory caps retained release revisions.
func NewHelmApplier(client HelmReleaser, atomic bool, maxHistory int) *HelmApplier {
	return &HelmApplier{client: client, atomic: atomic, maxHistory: maxHistory}
}

func (a *HelmApplier) Exists(_ context.Context, res *template.Resolved) (bool, error) {
	return a.client.ReleaseExists(res.Name, res.Attributes[attrNamespace])
}

func (a *HelmApplier) Create(ctx context.Context, res *template.Resolved) error {
	return a.installOrUpgrade(ctx, res)
}

func (a *HelmApplier) Update(ctx context.Context, res *template.Resolved) error {
	return a.installOrUpgrade(ctx, res)
}

func (a *HelmApplier) Delete(_ context.Context, rec state.Record) error {
	return a.client.Uninstall(releaseName(rec.ID), rec.Attributes[attrNamespace])
}

func (a *HelmApplier) installOrUpgrade(ctx context.Context, res *template.Resolved) error {
	spec, err := a.releaseSpec(res)
	if err != nil {
		// Malformed attributes never recover on retry.
		return retry.Terminal(err)
	}
	_, err = a.client.InstallOrUpgrade(ctx, spec)
	return err
}

// releaseSpec maps flat resource attributes onto a release: reserved keys
// fill the chart coordinates, values.* keys expand into chart values.
func (a *HelmApplier) releaseSpec(res *template.Resolved) (helm.ReleaseSpec, error) {
	chart := res.Attributes[attrChart]
	if chart == "" {
		return helm.ReleaseSpec{}, fmt.Errorf("release %s has no chart attribute", res.ID)
	}

	flat := make(map[string]string)
	for key, value := range res.Attributes {
		if strings.HasPrefix(key, valuesPrefix) {
			flat[strings.TrimPrefix(key, valuesPrefix)] = value
		}
	}

	spec := helm.ReleaseSpec{
		Name:       res.Name,
		Namespace:  res.Attributes[attrNamespace],
		RepoURL:    res.Attributes[attrRepository],
		Chart:      chart,
		Version:    res.Attributes[attrVersion],
		Values:     helm.FromFlatAttributes(flat),
		Atomic:     a.atomic,
		MaxHistory: a.maxHistory,
	}
	if raw := res.Attributes[attrTimeout]; raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return helm.ReleaseSpec{}, fmt.Errorf("release %s has invalid timeout %q: %w", res.ID, raw, err)
		}
		spec.Timeout = timeout
	}
	return spec, nil
}

func releaseName(id string) string {
	if _, name, ok := strings.Cut(id, "/"); ok {
		return name
	}
	return id
}
