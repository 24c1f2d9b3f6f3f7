// Package addons defines the built-in add-on catalog and the appliers that
// carry resolved resources onto the cluster and into Spaces.
package addons

import (
	"github.com/qovery/addonctl/internal/params"
	"github.com/qovery/addonctl/internal/template"
)

// Flag names gating optional add-ons.
const (
	FlagLogHistoryEnabled = "log_history_enabled"
)

// Catalog returns the built-in add-on templates. Placeholders are resolved
// against the cluster parameter set before planning.
func Catalog() []template.Template {
	return []template.Template{
		logsBucketTemplate(),
		ingressNginxTemplate(),
		lokiTemplate(),
	}
}

// logsBucketTemplate declares the Spaces bucket that receives cluster logs.
// The bucket kind is protected: once created it survives any destroy or
// removal so log history outlives the workloads that produced it.
func logsBucketTemplate() template.Template {
	return template.Template{
		Kind: template.KindBucket,
		Name: "logs",
		Attributes: map[string]string{
			"name":     "{{ " + params.ParamLogsBucketName + " }}",
			"endpoint": "{{ " + params.ParamSpacesEndpoint + " }}",
			"region":   "{{ " + params.ParamRegion + " }}",
		},
	}
}
