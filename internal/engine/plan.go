package engine

import (
	"fmt"
	"sort"

	"github.com/qovery/addonctl/internal/graph"
	"github.com/qovery/addonctl/internal/params"
	"github.com/qovery/addonctl/internal/template"
)

// Plan is the validated, ordered set of resources for one run. Building a
// plan performs the full fail-fast configuration pass: template resolution,
// dependency validation, cycle detection and deterministic ordering. No
// infrastructure call happens during planning.
type Plan struct {
	// Graph holds the resolved resources and their dependency edges.
	Graph *graph.Graph

	// Order is the deterministic apply order over Graph.
	Order []string

	// SecretBlocked maps resource ids whose templates reference unavailable
	// secret parameters to the causing error. Their dependents are listed
	// in BlockedDependents.
	SecretBlocked map[string]error

	// BlockedDependents lists resources excluded because they depend,
	// directly or transitively, on a secret-blocked resource.
	BlockedDependents []string
}

// Resources returns the planned resources in apply order.
func (p *Plan) Resources() []*template.Resolved {
	out := make([]*template.Resolved, 0, len(p.Order))
	for _, id := range p.Order {
		out = append(out, p.Graph.Resource(id))
	}
	return out
}

// BuildPlan resolves templates against the parameter set and enablement
// flags and produces the apply plan.
//
// secretErr, when non-nil, is the SecretUnavailableError returned by the
// parameter provider: templates referencing an unavailable secret are
// excluded from the plan (they will be reported failed), along with every
// template depending on them, while secret-free templates proceed.
func BuildPlan(templates []template.Template, set template.ParameterSet, flags template.Flags, secretErr *params.SecretUnavailableError) (*Plan, error) {
	// Enablement first: a disabled template has no graph presence, and its
	// exclusive dependents are pruned below through the enabled-set check.
	enabled := make(map[string]template.Template)
	for _, tpl := range templates {
		if err := tpl.Validate(); err != nil {
			return nil, &ConfigurationError{Err: err}
		}
		if _, dup := enabled[tpl.ID()]; dup {
			return nil, &ConfigurationError{Err: fmt.Errorf("duplicate template id %s", tpl.ID())}
		}
		if tpl.EnabledIf == "" || flags[tpl.EnabledIf] {
			enabled[tpl.ID()] = tpl
		}
	}

	// A dependency on a disabled template is only acceptable when the
	// dependent is disabled too; then the whole subtree is simply absent.
	disabledIDs := make(map[string]bool)
	for _, tpl := range templates {
		if _, ok := enabled[tpl.ID()]; !ok {
			disabledIDs[tpl.ID()] = true
		}
	}
	for id, tpl := range enabled {
		for _, dep := range tpl.DependsOn {
			if disabledIDs[dep] {
				return nil, &ConfigurationError{Err: &graph.DanglingDependencyError{ID: id, DependsOn: dep}}
			}
		}
	}

	// Exclude templates blocked by unavailable secrets, then transitively
	// everything depending on them.
	blocked := make(map[string]error)
	if secretErr != nil {
		for id, tpl := range enabled {
			if secretErr.Affects(template.References(tpl)) {
				blocked[id] = secretErr
			}
		}
	}
	dependentsBlocked := map[string]bool{}
	if len(blocked) > 0 {
		changed := true
		for changed {
			changed = false
			for id, tpl := range enabled {
				if _, isBlocked := blocked[id]; isBlocked || dependentsBlocked[id] {
					continue
				}
				for _, dep := range tpl.DependsOn {
					_, depBlocked := blocked[dep]
					if depBlocked || dependentsBlocked[dep] {
						dependentsBlocked[id] = true
						changed = true
						break
					}
				}
			}
		}
	}

	var resolved []*template.Resolved
	for id, tpl := range enabled {
		if _, isBlocked := blocked[id]; isBlocked || dependentsBlocked[id] {
			continue
		}
		res, ok, err := template.Resolve(tpl, set, flags)
		if err != nil {
			return nil, &ConfigurationError{Err: err}
		}
		if !ok {
			// Enablement was already checked over the same flags.
			continue
		}
		resolved = append(resolved, res)
	}
	sort.Slice(resolved, func(i, j int) bool { return resolved[i].ID < resolved[j].ID })

	g, err := graph.Build(resolved)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}

	blockedDependents := make([]string, 0, len(dependentsBlocked))
	for id := range dependentsBlocked {
		blockedDependents = append(blockedDependents, id)
	}
	sort.Strings(blockedDependents)

	return &Plan{
		Graph:             g,
		Order:             g.Order(),
		SecretBlocked:     blocked,
		BlockedDependents: blockedDependents,
	}, nil
}
