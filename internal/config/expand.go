package config

import (
	"github.com/qovery/addonctl/internal/addons"
	"github.com/qovery/addonctl/internal/params"
	"github.com/qovery/addonctl/internal/template"
)

// ClusterContext maps the cluster section onto the parameter provider input.
func (c *Config) ClusterContext() params.ClusterContext {
	return params.ClusterContext{
		ID:         c.Cluster.ID,
		Region:     c.Cluster.Region,
		BaseDomain: c.Cluster.BaseDomain,
	}
}

// Flags maps the addons section onto template enablement flags.
func (c *Config) Flags() template.Flags {
	return template.Flags{
		addons.FlagLogHistoryEnabled: c.Addons.LogHistoryEnabled,
	}
}
