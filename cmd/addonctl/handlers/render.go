package handlers

import (
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/qovery/addonctl/internal/engine"
	"github.com/qovery/addonctl/internal/metrics"
)

var (
	styleCreate  = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	styleUpdate  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3b82f6"))
	styleDelete  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	styleFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	styleSection = lipgloss.NewStyle().Bold(true)
)

func statusStyle(status engine.Status) lipgloss.Style {
	switch status {
	case engine.StatusCreated:
		return styleCreate
	case engine.StatusUpdated:
		return styleUpdate
	case engine.StatusFailed:
		return styleFailed
	default:
		return styleDim
	}
}

// printApplySummary prints one line per resource in apply order plus the
// deletion outcome and total duration.
func printApplySummary(result *engine.Result, steps []metrics.StepRecord, elapsed time.Duration) {
	seen := map[string]bool{}
	for _, step := range steps {
		outcome, ok := result.Outcomes[step.ResourceID]
		if !ok {
			continue
		}
		seen[step.ResourceID] = true
		printOutcome(outcome)
	}

	// Resources without a journal entry never reached an applier.
	rest := make([]string, 0, len(result.Outcomes))
	for id := range result.Outcomes {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		printOutcome(result.Outcomes[id])
	}

	for _, id := range result.Deleted {
		log.Printf("  %s %s", styleDelete.Render("deleted"), id)
	}
	for _, id := range result.ProtectedKept {
		log.Printf("  %s %s", styleDim.Render("kept"), styleDim.Render(id+" (protected)"))
	}
	for id, err := range result.DeleteFailures {
		log.Printf("  %s %s: %v", styleFailed.Render("delete failed"), id, err)
	}

	log.Printf("Done in %s", elapsed.Round(time.Millisecond))
}

func printOutcome(outcome *engine.Outcome) {
	label := statusStyle(outcome.Status).Render(string(outcome.Status))
	switch {
	case outcome.Err != nil:
		log.Printf("  %s %s: %v", label, outcome.ID, outcome.Err)
	case outcome.Duration > 0:
		log.Printf("  %s %s (%s)", label, outcome.ID, outcome.Duration.Round(time.Millisecond))
	default:
		log.Printf("  %s %s", label, outcome.ID)
	}
}

// planAction is one row of the plan output.
type planAction struct {
	verb string
	id   string
	note string
}

// renderPlan writes the plan table to w.
func renderPlan(w io.Writer, actions []planAction) {
	if len(actions) == 0 {
		fmt.Fprintln(w, "Nothing to do.")
		return
	}

	fmt.Fprintln(w, styleSection.Render("Planned changes:"))
	for _, action := range actions {
		var style lipgloss.Style
		switch action.verb {
		case "create":
			style = styleCreate
		case "update":
			style = styleUpdate
		case "delete":
			style = styleDelete
		case "blocked":
			style = styleFailed
		default:
			style = styleDim
		}
		line := fmt.Sprintf("  %s %s", style.Render(action.verb), action.id)
		if action.note != "" {
			line += " " + styleDim.Render("("+action.note+")")
		}
		fmt.Fprintln(w, line)
	}
}
