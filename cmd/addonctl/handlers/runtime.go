// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic and
// can be tested independently of the CLI framework.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/qovery/addonctl/internal/addons"
	"github.com/qovery/addonctl/internal/config"
	"github.com/qovery/addonctl/internal/engine"
	"github.com/qovery/addonctl/internal/metrics"
	"github.com/qovery/addonctl/internal/params"
	"github.com/qovery/addonctl/internal/platform/helm"
	"github.com/qovery/addonctl/internal/platform/k8s"
	"github.com/qovery/addonctl/internal/platform/spaces"
	"github.com/qovery/addonctl/internal/state"
	"github.com/qovery/addonctl/internal/template"
	"github.com/qovery/addonctl/internal/util/retry"
)

const defaultConfigPath = "addonctl.yaml"

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads the environment file.
	loadConfigFile = config.LoadFile

	// readFile reads kubeconfig bytes.
	readFile = os.ReadFile

	// newHelmReleaser creates the helm client for release appliers.
	newHelmReleaser = func(kubeconfig []byte) (addons.HelmReleaser, error) {
		return helm.NewClient(kubeconfig, "default")
	}

	// newClusterClient creates the kubernetes client used for secret reads
	// and service lookups.
	newClusterClient = func(kubeconfig []byte) (clusterClient, error) {
		return k8s.NewFromKubeconfig(kubeconfig)
	}

	// newSpacesClient creates the object-storage client for buckets and
	// remote state.
	newSpacesClient = func(endpoint, region, accessKey, secretKey string) (spacesClient, error) {
		return spaces.NewClient(endpoint, region, accessKey, secretKey)
	}
)

// spacesClient joins the bucket and object surfaces of the Spaces client so
// one instance serves the applier and the state store.
type spacesClient interface {
	addons.BucketClient
	state.ObjectClient
}

// clusterClient is the kubernetes surface the handlers use directly.
type clusterClient interface {
	params.SecretReader
	LoadBalancerAddress(ctx context.Context, namespace, name string) (string, error)
}

// runtime bundles everything a command run needs.
type runtime struct {
	cfg       *config.Config
	set       template.ParameterSet
	secretErr *params.SecretUnavailableError
	store     state.Store
	engine    *engine.Engine
	journal   *metrics.Journal
}

// newRuntime loads configuration, resolves parameters and wires the engine.
// An unavailable secret store is not fatal here: the error is carried into
// planning so secret-free resources still proceed.
func newRuntime(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	kubeconfig, err := loadKubeconfig(cfg)
	if err != nil {
		return nil, err
	}

	secretStore, err := newSecretStore(cfg, kubeconfig)
	if err != nil {
		return nil, err
	}

	set, err := params.NewProvider(secretStore).Resolve(ctx, cfg.ClusterContext())
	var secretErr *params.SecretUnavailableError
	if err != nil {
		if !errors.As(err, &secretErr) {
			return nil, err
		}
		log.Printf("Warning: secret parameters unavailable (%v), continuing with secret-free add-ons", secretErr)
	}

	store, err := newStateStore(cfg, set)
	if err != nil {
		return nil, err
	}

	helmClient, err := newHelmReleaser(kubeconfig)
	if err != nil {
		return nil, err
	}

	journal := metrics.NewJournal(metrics.NewPrometheus(prometheus.NewRegistry()))

	eng := engine.New(store, map[string]engine.Applier{
		template.KindHelmRelease: addons.NewHelmApplier(helmClient, cfg.Engine.Atomic, cfg.Engine.MaxHistory),
		template.KindBucket:      addons.NewBucketApplier(bucketClient(set)),
	}, engine.Options{
		Concurrency: cfg.Engine.Concurrency,
		Logger:      newLogger(),
		Recorder:    journal,
	})

	return &runtime{
		cfg:       cfg,
		set:       set,
		secretErr: secretErr,
		store:     store,
		engine:    eng,
		journal:   journal,
	}, nil
}

// buildPlan resolves the catalog, plus any user template files, against the
// runtime parameters.
func (rt *runtime) buildPlan() (*engine.Plan, error) {
	templates, err := addons.LoadTemplateFiles(addons.Catalog(), rt.cfg.Addons.TemplateFiles)
	if err != nil {
		return nil, err
	}
	return engine.BuildPlan(templates, rt.set, rt.cfg.Flags(), rt.secretErr)
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no environment file at %s\nRun 'addonctl init' to create one", configPath)
		}
		return nil, err
	}
	return cfg, nil
}

// loadKubeconfig resolves the kubeconfig the same way kubectl does:
// explicit config path, then KUBECONFIG, then ~/.kube/config.
func loadKubeconfig(cfg *config.Config) ([]byte, error) {
	path := cfg.Cluster.Kubeconfig
	if path == "" {
		path = os.Getenv("KUBECONFIG")
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate kubeconfig: %w", err)
		}
		path = filepath.Join(home, ".kube", "config")
	}
	data, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read kubeconfig %s: %w", path, err)
	}
	return data, nil
}

func newSecretStore(cfg *config.Config, kubeconfig []byte) (params.SecretStore, error) {
	switch cfg.Secrets.Source {
	case config.SecretSourceKubernetes:
		reader, err := newClusterClient(kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build kubernetes secret source: %w", err)
		}
		return params.KubernetesSecrets{
			Reader:    reader,
			Namespace: cfg.Secrets.Namespace,
			Name:      cfg.Secrets.Name,
		}, nil
	default:
		return params.EnvSecrets{Prefix: cfg.Secrets.Prefix}, nil
	}
}

func newStateStore(cfg *config.Config, set template.ParameterSet) (state.Store, error) {
	switch cfg.State.Backend {
	case config.StateBackendSpaces:
		client, err := spacesFromParams(set)
		if err != nil {
			return nil, fmt.Errorf("spaces state backend unavailable: %w", err)
		}
		return state.NewSpacesStore(client, cfg.State.Bucket, cfg.State.Key), nil
	default:
		return state.NewFileStore(cfg.State.Path), nil
	}
}

// bucketClient returns the Spaces client when credentials resolved, or a
// client that surfaces the credential problem on first use so a blocked
// bucket shows up as a per-resource failure instead of aborting the run.
func bucketClient(set template.ParameterSet) addons.BucketClient {
	client, err := spacesFromParams(set)
	if err != nil {
		return unavailableBuckets{err: err}
	}
	return client
}

func spacesFromParams(set template.ParameterSet) (spacesClient, error) {
	accessKey := set[params.ParamSpacesAccessKeyID]
	secretKey := set[params.ParamSpacesSecretAccessKey]
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("spaces credentials are not available")
	}
	return newSpacesClient(set[params.ParamSpacesEndpoint], set[params.ParamRegion], accessKey, secretKey)
}

// unavailableBuckets fails every call with the credential error. Terminal:
// credentials do not appear mid-run, so retrying is pointless.
type unavailableBuckets struct {
	err error
}

func (u unavailableBuckets) CreateBucket(context.Context, string) error {
	return retry.Terminal(u.err)
}

func (u unavailableBuckets) DeleteBucket(context.Context, string) error {
	return retry.Terminal(u.err)
}

func (u unavailableBuckets) BucketExists(context.Context, string) (bool, error) {
	return false, retry.Terminal(u.err)
}

// newLogger adapts engine progress logging onto the standard logger the
// handlers print with.
func newLogger() logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			log.Printf("%s: %s", prefix, args)
			return
		}
		log.Print(args)
	}, funcr.Options{})
}
