// Package params assembles the ParameterSet consumed by template
// resolution: cluster-scoped identifiers, values derived from them (wildcard
// DNS name, object-storage endpoint, bucket name) and secrets fetched from a
// pluggable secret store.
//
// All values are opaque strings. The provider never interprets how a value
// is used downstream, and nothing outside this package performs ambient
// environment lookups.
package params

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/qovery/addonctl/internal/template"
)

// Well-known parameter names.
const (
	ParamClusterID      = "cluster_id"
	ParamRegion         = "region"
	ParamBaseDomain     = "base_domain"
	ParamWildcardDNS    = "wildcard_dns"
	ParamSpacesEndpoint = "spaces_endpoint"
	ParamLogsBucketName = "logs_bucket_name"

	ParamSpacesAccessKeyID     = "spaces_access_key_id"
	ParamSpacesSecretAccessKey = "spaces_secret_access_key"
)

// spacesEndpointSuffix is the DigitalOcean Spaces endpoint domain; the
// full endpoint is <region>.<suffix>.
const spacesEndpointSuffix = "digitaloceanspaces.com"

// logsBucketPrefix prefixes the per-cluster log bucket name.
const logsBucketPrefix = "qovery-logs"

// secretParamNames lists the parameters sourced from the secret store.
var secretParamNames = []string{
	ParamSpacesAccessKeyID,
	ParamSpacesSecretAccessKey,
}

// ClusterContext identifies the target cluster.
type ClusterContext struct {
	ID         string
	Region     string
	BaseDomain string
}

// Validate checks the context fields needed to derive parameters.
func (c ClusterContext) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("cluster id is required")
	}
	if c.Region == "" {
		return fmt.Errorf("cluster region is required")
	}
	return nil
}

// SecretStore fetches secret values by parameter name. Retrieval is the only
// provider operation permitted to fail due to external unavailability.
type SecretStore interface {
	Get(ctx context.Context, name string) (string, error)
}

// SecretUnavailableError reports secret parameters that could not be
// fetched. Templates referencing any of Names must not be applied; templates
// that do not need them may still be planned.
type SecretUnavailableError struct {
	Names []string
	Err   error
}

func (e *SecretUnavailableError) Error() string {
	return fmt.Sprintf("secret parameters unavailable (%s): %v", strings.Join(e.Names, ", "), e.Err)
}

func (e *SecretUnavailableError) Unwrap() error {
	return e.Err
}

// Affects reports whether any of the given parameter references is one of
// the unavailable secrets.
func (e *SecretUnavailableError) Affects(references []string) bool {
	for _, ref := range references {
		for _, name := range e.Names {
			if ref == name {
				return true
			}
		}
	}
	return false
}

// Provider resolves the ParameterSet for a cluster.
type Provider struct {
	secrets SecretStore
}

// NewProvider creates a provider backed by the given secret store. A nil
// store means no secret parameters are available.
func NewProvider(secrets SecretStore) *Provider {
	return &Provider{secrets: secrets}
}

// Resolve aggregates cluster identifiers, derived values and secrets into a
// single ParameterSet.
//
// When the secret store is unreachable the returned error is a
// *SecretUnavailableError and the ParameterSet is still valid for every
// non-secret parameter, so secret-free templates can proceed to planning.
func (p *Provider) Resolve(ctx context.Context, cluster ClusterContext) (template.ParameterSet, error) {
	if err := cluster.Validate(); err != nil {
		return nil, err
	}

	set := template.ParameterSet{
		ParamClusterID:      cluster.ID,
		ParamRegion:         cluster.Region,
		ParamBaseDomain:     cluster.BaseDomain,
		ParamSpacesEndpoint: SpacesEndpoint(cluster.Region),
		ParamLogsBucketName: LogsBucketName(cluster.ID),
	}
	if cluster.BaseDomain != "" {
		set[ParamWildcardDNS] = WildcardDNS(cluster.ID, cluster.BaseDomain)
	}

	if p.secrets == nil {
		return set, &SecretUnavailableError{
			Names: append([]string(nil), secretParamNames...),
			Err:   fmt.Errorf("no secret store configured"),
		}
	}

	var missing []string
	var lastErr error
	for _, name := range secretParamNames {
		value, err := p.secrets.Get(ctx, name)
		if err != nil {
			missing = append(missing, name)
			lastErr = err
			continue
		}
		set[name] = value
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return set, &SecretUnavailableError{Names: missing, Err: lastErr}
	}
	return set, nil
}

// WildcardDNS builds the wildcard hostname for a cluster:
// *.<cluster id>.<base domain>.
func WildcardDNS(clusterID, baseDomain string) string {
	return "*." + clusterID + "." + baseDomain
}

// SpacesEndpoint returns the object-storage endpoint for a region.
func SpacesEndpoint(region string) string {
	return region + "." + spacesEndpointSuffix
}

// LogsBucketName returns the per-cluster log bucket name.
func LogsBucketName(clusterID string) string {
	return logsBucketPrefix + "-" + clusterID
}
