package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/qovery/addonctl/internal/engine"
)

// ApplyFailedError reports an apply run that finished with failed
// resources. The per-resource errors were already printed.
type ApplyFailedError struct {
	Failed int
}

func (e *ApplyFailedError) Error() string {
	return fmt.Sprintf("apply finished with %d failed resource(s)", e.Failed)
}

// Apply plans the configured add-ons and applies them to the cluster.
//
// The flow is: load the environment file, resolve cluster parameters and
// secrets, build the dependency-ordered plan, then let the engine create,
// update, skip and delete resources against the persisted apply records.
func Apply(ctx context.Context, configPath string) error {
	rt, err := newRuntime(ctx, configPath)
	if err != nil {
		return err
	}

	plan, err := rt.buildPlan()
	if err != nil {
		return err
	}

	log.Printf("Applying %d add-on resource(s) for cluster %s", plan.Graph.Len(), rt.cfg.Cluster.ID)
	started := time.Now()

	result, err := rt.engine.Apply(ctx, plan)
	if err != nil {
		return err
	}

	printApplySummary(result, rt.journal.Steps(), time.Since(started))
	reportIngressAddress(ctx, rt, plan, result)

	if result.Cancelled {
		return fmt.Errorf("apply interrupted")
	}
	if failed := len(result.IDsWithStatus(engine.StatusFailed)); failed > 0 {
		return &ApplyFailedError{Failed: failed}
	}
	if len(result.DeleteFailures) > 0 {
		return &ApplyFailedError{Failed: len(result.DeleteFailures)}
	}
	return nil
}

// reportIngressAddress prints the ingress load balancer address once the
// controller applied, so DNS can be pointed at it. Best effort: a pending
// LB or an unreachable cluster only skips the hint.
func reportIngressAddress(ctx context.Context, rt *runtime, plan *engine.Plan, result *engine.Result) {
	outcome, ok := result.Outcomes["helm_release/nginx-ingress"]
	if !ok || outcome.Err != nil {
		return
	}
	res := plan.Graph.Resource("helm_release/nginx-ingress")
	if res == nil {
		return
	}

	kubeconfig, err := loadKubeconfig(rt.cfg)
	if err != nil {
		return
	}
	client, err := newClusterClient(kubeconfig)
	if err != nil {
		return
	}

	service := controllerServiceName(res.Name, res.Attributes["chart"])
	address, err := client.LoadBalancerAddress(ctx, res.Attributes["namespace"], service)
	if err != nil || address == "" {
		return
	}
	log.Printf("Ingress load balancer: %s (point *.%s.%s here)", address, rt.cfg.Cluster.ID, rt.cfg.Cluster.BaseDomain)
}

// controllerServiceName derives the controller service name the
// ingress-nginx chart generates: the chart name is appended to the release
// name unless already contained in it, each stage truncated to the 63
// character name limit.
func controllerServiceName(release, chart string) string {
	fullname := release
	if !strings.Contains(release, chart) {
		fullname = truncName(release + "-" + chart)
	}
	return truncName(fullname + "-controller")
}

func truncName(name string) string {
	if len(name) > 63 {
		name = name[:63]
	}
	return strings.TrimSuffix(name, "-")
}
