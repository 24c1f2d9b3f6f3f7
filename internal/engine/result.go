package engine

import (
	"sort"
	"time"
)

// Status is the terminal state of one resource within a run.
type Status string

const (
	// StatusPending marks a resource the scheduler has not finished yet.
	// It never appears in a final Result.
	StatusPending Status = "pending"

	// StatusSkipped means the resource was unchanged and already present
	// remotely; no API call was made.
	StatusSkipped Status = "skipped"

	// StatusCreated and StatusUpdated mean the apply call succeeded.
	StatusCreated Status = "created"
	StatusUpdated Status = "updated"

	// StatusFailed means the apply call errored after exhausting retries,
	// or the resource was blocked by an unavailable secret.
	StatusFailed Status = "failed"

	// StatusNeverAttempted means a dependency (direct or transitive)
	// failed, so the resource was not tried.
	StatusNeverAttempted Status = "never_attempted"

	// StatusInterrupted means the resource was in flight when the run was
	// cancelled.
	StatusInterrupted Status = "interrupted"
)

// Outcome is the per-resource entry of a Result.
type Outcome struct {
	ID       string
	Kind     string
	Status   Status
	Err      error
	Duration time.Duration
}

// Result enumerates what happened to every resource of a run.
type Result struct {
	// Outcomes holds one entry per planned resource.
	Outcomes map[string]*Outcome

	// Deleted lists resources removed because they left the desired set.
	Deleted []string

	// ProtectedKept lists protected resources that left the desired set:
	// they were dropped from tracked state but never deleted.
	ProtectedKept []string

	// DeleteFailures maps resource ids to the error that prevented their
	// deletion.
	DeleteFailures map[string]error

	// Cancelled is true when the run stopped because of context
	// cancellation rather than completing.
	Cancelled bool
}

func newResult() *Result {
	return &Result{
		Outcomes:       map[string]*Outcome{},
		DeleteFailures: map[string]error{},
	}
}

// Succeeded reports whether every resource ended Skipped, Created or
// Updated, nothing was cancelled, and all required deletions went through.
func (r *Result) Succeeded() bool {
	if r.Cancelled || len(r.DeleteFailures) > 0 {
		return false
	}
	for _, outcome := range r.Outcomes {
		switch outcome.Status {
		case StatusSkipped, StatusCreated, StatusUpdated:
		default:
			return false
		}
	}
	return true
}

// FirstFailure returns the failed outcome with the smallest id, or nil.
// Deterministic so operators always see the same resource reported first.
func (r *Result) FirstFailure() *Outcome {
	var failed []*Outcome
	for _, outcome := range r.Outcomes {
		if outcome.Status == StatusFailed {
			failed = append(failed, outcome)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].ID < failed[j].ID })
	return failed[0]
}

// IDsWithStatus returns the sorted ids of resources that ended in the given
// status.
func (r *Result) IDsWithStatus(status Status) []string {
	var ids []string
	for id, outcome := range r.Outcomes {
		if outcome.Status == status {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
