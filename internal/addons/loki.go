package addons

import (
	"github.com/qovery/addonctl/internal/params"
	"github.com/qovery/addonctl/internal/template"
)

// lokiTemplate declares the Loki release backing cluster log history. It is
// gated on the log history flag and stores chunks and indexes in the logs
// bucket over the Spaces S3 API, so it depends on the bucket resource.
func lokiTemplate() template.Template {
	return template.Template{
		Kind:      template.KindHelmRelease,
		Name:      "loki",
		EnabledIf: FlagLogHistoryEnabled,
		DependsOn: []string{template.KindBucket + "/logs"},
		Attributes: map[string]string{
			"chart":      "loki",
			"repository": "https://grafana.github.io/helm-charts",
			"version":    "2.16.0",
			"namespace":  "logging",

			"values.config.auth_enabled":                                "false",
			"values.config.ingester.lifecycler.ring.kvstore.store":      "inmemory",
			"values.config.ingester.lifecycler.ring.replication_factor": "1",
			"values.config.schema_config.configs[0].store":              "boltdb-shipper",
			"values.config.schema_config.configs[0].object_store":       "aws",
			"values.config.schema_config.configs[0].schema":             "v11",
			"values.config.storage_config.aws.endpoint":                 "{{ " + params.ParamSpacesEndpoint + " }}",
			"values.config.storage_config.aws.region":                   "{{ " + params.ParamRegion + " }}",
			"values.config.storage_config.aws.bucketnames":              "{{ " + params.ParamLogsBucketName + " }}",
			"values.config.storage_config.aws.access_key_id":            "{{ " + params.ParamSpacesAccessKeyID + " }}",
			"values.config.storage_config.aws.secret_access_key":        "{{ " + params.ParamSpacesSecretAccessKey + " }}",
			"values.config.storage_config.aws.s3forcepathstyle":         "true",
			"values.config.compactor.working_directory":                 "/data/compactor",
			"values.config.compactor.shared_store":                      "aws",

			"values.resources.requests.cpu":    "100m",
			"values.resources.requests.memory": "128Mi",
			"values.resources.limits.cpu":      "300m",
			"values.resources.limits.memory":   "300Mi",
		},
	}
}
