package handlers

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/qovery/addonctl/internal/engine"
	"github.com/qovery/addonctl/internal/template"
)

// Plan prints the operations an apply would perform, diffing the resolved
// add-ons against the persisted apply records. No cluster call is made.
func Plan(ctx context.Context, w io.Writer, configPath string) error {
	rt, err := newRuntime(ctx, configPath)
	if err != nil {
		return err
	}

	plan, err := rt.buildPlan()
	if err != nil {
		return err
	}

	records, err := rt.store.Load(ctx)
	if err != nil {
		return err
	}

	var actions []planAction
	desired := map[string]bool{}

	for _, res := range plan.Resources() {
		desired[res.ID] = true
		rec, tracked := records[res.ID]
		switch {
		case !tracked:
			actions = append(actions, planAction{verb: "create", id: res.ID})
		case rec.Hash != engine.HashAttributes(res.Attributes):
			actions = append(actions, planAction{verb: "update", id: res.ID})
		default:
			actions = append(actions, planAction{verb: "skip", id: res.ID, note: "unchanged"})
		}
	}

	blocked := make([]string, 0, len(plan.SecretBlocked)+len(plan.BlockedDependents))
	for id := range plan.SecretBlocked {
		desired[id] = true
		blocked = append(blocked, id)
	}
	for _, id := range plan.BlockedDependents {
		desired[id] = true
		blocked = append(blocked, id)
	}
	sort.Strings(blocked)
	for _, id := range blocked {
		actions = append(actions, planAction{verb: "blocked", id: id, note: "secret parameters unavailable"})
	}

	removed := make([]string, 0, len(records))
	for id := range records {
		if !desired[id] {
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	for _, id := range removed {
		if isProtectedID(id) {
			actions = append(actions, planAction{verb: "keep", id: id, note: "protected, record dropped"})
			continue
		}
		actions = append(actions, planAction{verb: "delete", id: id})
	}

	renderPlan(w, actions)
	return nil
}

func isProtectedID(id string) bool {
	kind, _, _ := strings.Cut(id, "/")
	return template.IsProtectedKind(kind)
}
