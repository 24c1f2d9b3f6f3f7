package graph

import (
	"errors"
	"testing"

	"github.com/qovery/addonctl/internal/template"
)

func res(id string, deps ...string) *template.Resolved {
	return &template.Resolved{ID: id, DependsOn: deps}
}

func TestBuild_OrderIsTopological(t *testing.T) {
	g, err := Build([]*template.Resolved{
		res("helm_release/loki", "bucket/logs", "helm_release/nginx-ingress"),
		res("bucket/logs"),
		res("helm_release/nginx-ingress"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := g.Order()
	pos := map[string]int{}
	for i, id := range order {
		pos[id] = i
	}

	if pos["bucket/logs"] > pos["helm_release/loki"] {
		t.Error("bucket must be applied before loki")
	}
	if pos["helm_release/nginx-ingress"] > pos["helm_release/loki"] {
		t.Error("ingress must be applied before loki")
	}
}

func TestBuild_OrderIsDeterministic(t *testing.T) {
	build := func() []string {
		g, err := Build([]*template.Resolved{
			res("b"), res("a"), res("c"),
			res("d", "a", "b", "c"),
			res("e", "a"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return g.Order()
	}

	first := build()
	for range 10 {
		again := build()
		for i := range first {
			if first[i] != again[i] {
				t.Fatalf("order differs between runs: %v vs %v", first, again)
			}
		}
	}

	// Among ready nodes, lexicographically smallest first.
	if first[0] != "a" || first[1] != "b" || first[2] != "c" {
		t.Errorf("expected a, b, c prefix, got %v", first)
	}
}

func TestBuild_CycleNamesAllResources(t *testing.T) {
	_, err := Build([]*template.Resolved{
		res("a", "c"),
		res("b", "a"),
		res("c", "b"),
	})
	if err == nil {
		t.Fatal("expected cycle error")
	}

	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CycleError, got %T: %v", err, err)
	}

	named := map[string]bool{}
	for _, id := range cycle.Path {
		named[id] = true
	}
	for _, id := range []string{"a", "b", "c"} {
		if !named[id] {
			t.Errorf("cycle path %v does not name %s", cycle.Path, id)
		}
	}
	if cycle.Path[0] != cycle.Path[len(cycle.Path)-1] {
		t.Errorf("cycle path %v should close on its starting node", cycle.Path)
	}
}

func TestBuild_DanglingDependency(t *testing.T) {
	_, err := Build([]*template.Resolved{
		res("helm_release/loki", "bucket/logs"),
	})
	if err == nil {
		t.Fatal("expected dangling dependency error")
	}

	var dangling *DanglingDependencyError
	if !errors.As(err, &dangling) {
		t.Fatalf("expected DanglingDependencyError, got %T: %v", err, err)
	}
	if dangling.ID != "helm_release/loki" || dangling.DependsOn != "bucket/logs" {
		t.Errorf("unexpected error detail: %+v", dangling)
	}
}

func TestBuild_DuplicateID(t *testing.T) {
	_, err := Build([]*template.Resolved{res("a"), res("a")})
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestTransitiveDependents(t *testing.T) {
	g, err := Build([]*template.Resolved{
		res("a"),
		res("b", "a"),
		res("c", "b"),
		res("d"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deps := g.TransitiveDependents("a")
	if len(deps) != 2 || deps[0] != "b" || deps[1] != "c" {
		t.Errorf("TransitiveDependents(a) = %v, want [b c]", deps)
	}
	if got := g.TransitiveDependents("d"); len(got) != 0 {
		t.Errorf("TransitiveDependents(d) = %v, want none", got)
	}
}
