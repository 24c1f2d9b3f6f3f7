// Package config defines the addonctl environment configuration: cluster
// identity, add-on toggles, engine tuning, state backend and secret source.
package config

// Config is the root configuration loaded from the environment YAML file.
type Config struct {
	Cluster ClusterConfig `mapstructure:"cluster"`
	Addons  AddonsConfig  `mapstructure:"addons"`
	Engine  EngineConfig  `mapstructure:"engine"`
	State   StateConfig   `mapstructure:"state"`
	Secrets SecretsConfig `mapstructure:"secrets"`
}

// ClusterConfig identifies the target cluster.
type ClusterConfig struct {
	ID         string `mapstructure:"id"`
	Region     string `mapstructure:"region"`
	BaseDomain string `mapstructure:"base_domain"`

	// Kubeconfig is the path to the cluster kubeconfig file. Empty falls
	// back to the standard KUBECONFIG resolution.
	Kubeconfig string `mapstructure:"kubeconfig"`
}

// AddonsConfig toggles optional add-ons. The logs bucket and the ingress
// controller are always managed; only log history is optional.
type AddonsConfig struct {
	LogHistoryEnabled bool `mapstructure:"log_history_enabled"`

	// TemplateFiles lists extra template YAML files merged over the
	// built-in catalog. Paths are relative to the working directory.
	TemplateFiles []string `mapstructure:"template_files"`
}

// EngineConfig tunes plan execution.
type EngineConfig struct {
	// Concurrency bounds parallel resource applies. Zero means the engine
	// default.
	Concurrency int `mapstructure:"concurrency"`

	// Atomic rolls failed helm operations back instead of leaving partial
	// releases behind.
	Atomic bool `mapstructure:"atomic"`

	// MaxHistory caps retained helm release revisions. Zero keeps the Helm
	// default.
	MaxHistory int `mapstructure:"max_history"`
}

// State backend names.
const (
	StateBackendLocal  = "local"
	StateBackendSpaces = "spaces"
)

// StateConfig selects where apply records persist.
type StateConfig struct {
	Backend string `mapstructure:"backend"`

	// Path is the record file path for the local backend.
	Path string `mapstructure:"path"`

	// Bucket and Key locate the record object for the spaces backend.
	// Empty Key uses the store default.
	Bucket string `mapstructure:"bucket"`
	Key    string `mapstructure:"key"`
}

// Secret source names.
const (
	SecretSourceEnv        = "env"
	SecretSourceKubernetes = "kubernetes"
)

// SecretsConfig selects where secret parameters are read from.
type SecretsConfig struct {
	Source string `mapstructure:"source"`

	// Prefix prepends environment variable lookups for the env source.
	Prefix string `mapstructure:"prefix"`

	// Namespace and Name locate the secret for the kubernetes source.
	Namespace string `mapstructure:"namespace"`
	Name      string `mapstructure:"name"`
}
