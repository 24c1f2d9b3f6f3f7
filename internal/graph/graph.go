// Package graph builds the dependency graph over resolved resources and
// computes the order in which the apply engine visits them.
//
// The graph is a pure function of its input: building it twice over the same
// resolved set yields the identical structure and identical ordering, which
// keeps plans reproducible and diffs stable across runs.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/qovery/addonctl/internal/template"
)

// CycleError reports a dependency cycle. Path holds the full cycle with the
// starting node repeated at the end (a -> b -> c -> a).
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}

// DanglingDependencyError reports an edge whose target does not exist among
// the resolved resources, typically because the target was disabled while
// its dependent was not.
type DanglingDependencyError struct {
	ID        string
	DependsOn string
}

func (e *DanglingDependencyError) Error() string {
	return fmt.Sprintf("resource %s depends on %s, which is not part of the resolved set (disabled or unknown)",
		e.ID, e.DependsOn)
}

// Graph is a directed acyclic dependency graph of resolved resources.
type Graph struct {
	resources  map[string]*template.Resolved
	dependsOn  map[string][]string // id -> its dependencies
	dependents map[string][]string // id -> resources depending on it
}

// Build constructs a graph from resolved resources. Every declared
// dependency must reference a resource in the set; an edge to a missing
// resource is a configuration error. Cycles are detected eagerly so that no
// infrastructure call is ever made against a cyclic configuration.
func Build(resources []*template.Resolved) (*Graph, error) {
	g := &Graph{
		resources:  make(map[string]*template.Resolved, len(resources)),
		dependsOn:  make(map[string][]string, len(resources)),
		dependents: make(map[string][]string, len(resources)),
	}

	for _, res := range resources {
		if _, exists := g.resources[res.ID]; exists {
			return nil, fmt.Errorf("duplicate resource id %s", res.ID)
		}
		g.resources[res.ID] = res
	}

	for _, res := range resources {
		deps := make([]string, len(res.DependsOn))
		copy(deps, res.DependsOn)
		sort.Strings(deps)
		for _, dep := range deps {
			if _, exists := g.resources[dep]; !exists {
				return nil, &DanglingDependencyError{ID: res.ID, DependsOn: dep}
			}
			g.dependents[dep] = append(g.dependents[dep], res.ID)
		}
		g.dependsOn[res.ID] = deps
	}
	for id := range g.dependents {
		sort.Strings(g.dependents[id])
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}

	return g, nil
}

// Resource returns the resolved resource for an id, or nil.
func (g *Graph) Resource(id string) *template.Resolved {
	return g.resources[id]
}

// Len returns the number of resources in the graph.
func (g *Graph) Len() int {
	return len(g.resources)
}

// Dependencies returns the direct dependencies of id, sorted.
func (g *Graph) Dependencies(id string) []string {
	return g.dependsOn[id]
}

// TransitiveDependents returns every resource that depends, directly or
// through intermediate resources, on id. Sorted for stable reporting.
func (g *Graph) TransitiveDependents(id string) []string {
	seen := map[string]bool{}
	stack := append([]string(nil), g.dependents[id]...)
	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[next] {
			continue
		}
		seen[next] = true
		stack = append(stack, g.dependents[next]...)
	}

	out := make([]string, 0, len(seen))
	for dep := range seen {
		out = append(out, dep)
	}
	sort.Strings(out)
	return out
}

// Order returns all resource ids in topological order. Ordering is
// deterministic: among the ready nodes the lexicographically smallest id is
// always selected first (Kahn's algorithm with a sorted frontier).
func (g *Graph) Order() []string {
	inDegree := make(map[string]int, len(g.resources))
	for id := range g.resources {
		inDegree[id] = len(g.dependsOn[id])
	}

	var frontier []string
	for id, degree := range inDegree {
		if degree == 0 {
			frontier = append(frontier, id)
		}
	}
	sort.Strings(frontier)

	order := make([]string, 0, len(g.resources))
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		order = append(order, id)

		for _, dependent := range g.dependents[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				frontier = append(frontier, dependent)
				sort.Strings(frontier)
			}
		}
	}

	return order
}

// findCycle returns the path of a dependency cycle, or nil when the graph
// is acyclic. Iteration is over sorted ids so the reported cycle is the
// same on every run.
func (g *Graph) findCycle() []string {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[string]int, len(g.resources))
	var path []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		state[id] = visiting
		path = append(path, id)

		for _, dep := range g.dependsOn[id] {
			switch state[dep] {
			case visiting:
				// Close the loop: slice the path from the first occurrence
				// of dep and repeat it at the end.
				start := 0
				for i, p := range path {
					if p == dep {
						start = i
						break
					}
				}
				cycle = append(append([]string(nil), path[start:]...), dep)
				return true
			case unvisited:
				if visit(dep) {
					return true
				}
			}
		}

		path = path[:len(path)-1]
		state[id] = done
		return false
	}

	ids := make([]string, 0, len(g.resources))
	for id := range g.resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if state[id] == unvisited && visit(id) {
			return cycle
		}
	}
	return nil
}
