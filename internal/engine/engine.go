// Package engine walks the dependency graph and applies resources against
// the target infrastructure, tracking persisted apply records so re-runs
// are idempotent.
//
// Resources with all dependencies satisfied apply concurrently up to a
// configured bound. A failure halts every resource depending on the failed
// one, directly or transitively, while independent branches of the graph
// keep going. Protected resource kinds are created but never deleted.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/qovery/addonctl/internal/metrics"
	"github.com/qovery/addonctl/internal/state"
	"github.com/qovery/addonctl/internal/template"
	"github.com/qovery/addonctl/internal/util/retry"
)

// DefaultConcurrency bounds parallel applies when no explicit bound is
// configured. Conservative to respect cloud API rate limits.
const DefaultConcurrency = 2

// Applier performs the infrastructure calls for one resource kind.
type Applier interface {
	// Exists checks whether the resource is present remotely.
	Exists(ctx context.Context, res *template.Resolved) (bool, error)

	// Create provisions the resource.
	Create(ctx context.Context, res *template.Resolved) error

	// Update applies changed attributes to an existing resource.
	Update(ctx context.Context, res *template.Resolved) error

	// Delete removes a previously applied resource. Never called for
	// protected kinds.
	Delete(ctx context.Context, rec state.Record) error
}

// Options configures an Engine.
type Options struct {
	// Concurrency bounds parallel applies; zero means DefaultConcurrency.
	Concurrency int

	// Retry overrides the backoff policy applied to infrastructure calls.
	Retry []retry.Option

	// Logger receives progress logging. Defaults to logr.Discard.
	Logger logr.Logger

	// Recorder receives per-resource apply metrics. Defaults to a no-op.
	Recorder metrics.Recorder
}

// Engine owns apply-record persistence and plan execution.
type Engine struct {
	store       state.Store
	appliers    map[string]Applier
	concurrency int
	retryOpts   []retry.Option
	log         logr.Logger
	rec         metrics.Recorder
	now         func() time.Time
}

// New creates an engine over the given state store and per-kind appliers.
func New(store state.Store, appliers map[string]Applier, opts Options) *Engine {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	rec := opts.Recorder
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Engine{
		store:       store,
		appliers:    appliers,
		concurrency: concurrency,
		retryOpts:   opts.Retry,
		log:         opts.Logger,
		rec:         rec,
		now:         time.Now,
	}
}

// applyDone carries one worker's outcome back to the coordinator.
type applyDone struct {
	id       string
	status   Status
	record   *state.Record
	err      error
	duration time.Duration
}

// Apply executes the plan. The returned error covers state-store problems
// only; per-resource failures are enumerated in the Result.
func (e *Engine) Apply(ctx context.Context, plan *Plan) (*Result, error) {
	previous, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load apply records: %w", err)
	}

	records := make(map[string]state.Record, len(previous))
	for id, rec := range previous {
		records[id] = rec
	}

	result := newResult()

	// Resources blocked by unavailable secrets fail without any call;
	// everything depending on them is never attempted.
	for id, secretErr := range plan.SecretBlocked {
		result.Outcomes[id] = &Outcome{ID: id, Kind: kindOf(id), Status: StatusFailed, Err: secretErr}
	}
	for _, id := range plan.BlockedDependents {
		result.Outcomes[id] = &Outcome{ID: id, Kind: kindOf(id), Status: StatusNeverAttempted}
	}

	e.runPlan(ctx, plan, previous, records, result)

	if !result.Cancelled {
		e.deleteRemoved(ctx, plan, records, result)
	}

	// Persist what actually happened even when the run was cancelled or
	// partially failed; the next invocation diffs against it.
	if err := e.store.Save(context.WithoutCancel(ctx), records); err != nil {
		return result, fmt.Errorf("failed to save apply records: %w", err)
	}
	return result, nil
}

// runPlan is the scheduler: it launches ready resources up to the
// concurrency bound and folds worker results into the progress table. Only
// this goroutine touches the progress table and the record map.
func (e *Engine) runPlan(ctx context.Context, plan *Plan, previous, records map[string]state.Record, result *Result) {
	pending := make(map[string]bool, len(plan.Order))
	for _, id := range plan.Order {
		pending[id] = true
	}
	satisfied := map[string]bool{}
	running := map[string]bool{}
	cancelled := false

	done := make(chan applyDone)

	ready := func() []string {
		var ids []string
		for _, id := range plan.Order {
			if !pending[id] {
				continue
			}
			eligible := true
			for _, dep := range plan.Graph.Dependencies(id) {
				if !satisfied[dep] {
					eligible = false
					break
				}
			}
			if eligible {
				ids = append(ids, id)
			}
		}
		return ids
	}

	launch := func(id string) {
		delete(pending, id)
		running[id] = true
		res := plan.Graph.Resource(id)
		prev, hasPrev := previous[id]
		e.log.V(1).Info("applying resource", "id", id)
		go func() {
			start := time.Now()
			status, rec, err := e.applyResource(ctx, res, prev, hasPrev)
			done <- applyDone{id: id, status: status, record: rec, err: err, duration: time.Since(start)}
		}()
	}

	handle := func(d applyDone) {
		delete(running, d.id)
		kind := plan.Graph.Resource(d.id).Kind

		if d.err != nil && isCancellation(d.err) && (cancelled || ctx.Err() != nil) {
			cancelled = true
			d.status = StatusInterrupted
		}

		result.Outcomes[d.id] = &Outcome{ID: d.id, Kind: kind, Status: d.status, Err: d.err, Duration: d.duration}

		switch d.status {
		case StatusSkipped, StatusCreated, StatusUpdated:
			satisfied[d.id] = true
			if d.record != nil {
				records[d.id] = *d.record
			}
			e.rec.ObserveApply(d.id, kind, outcomeLabel(d.status), d.duration)
			e.log.Info("resource applied", "id", d.id, "status", string(d.status))
		case StatusFailed:
			e.rec.ObserveApply(d.id, kind, metrics.OutcomeFailed, d.duration)
			e.log.Error(d.err, "resource apply failed", "id", d.id)
			for _, dependent := range plan.Graph.TransitiveDependents(d.id) {
				if pending[dependent] {
					delete(pending, dependent)
					result.Outcomes[dependent] = &Outcome{ID: dependent, Kind: kindOf(dependent), Status: StatusNeverAttempted}
				}
			}
		case StatusInterrupted:
			e.log.Info("resource interrupted by cancellation", "id", d.id)
		}
	}

	for {
		if !cancelled {
			for _, id := range ready() {
				if len(running) >= e.concurrency {
					break
				}
				launch(id)
			}
		}
		if len(running) == 0 {
			break
		}

		if cancelled {
			handle(<-done)
			continue
		}
		select {
		case d := <-done:
			handle(d)
		case <-ctx.Done():
			cancelled = true
			e.log.Info("cancellation requested, waiting for in-flight applies")
		}
	}

	if cancelled {
		result.Cancelled = true
		for id := range pending {
			result.Outcomes[id] = &Outcome{ID: id, Kind: kindOf(id), Status: StatusNeverAttempted}
		}
	}
}

// applyResource runs the per-resource state machine: hash comparison, then
// skip, create or update.
func (e *Engine) applyResource(ctx context.Context, res *template.Resolved, prev state.Record, hasPrev bool) (Status, *state.Record, error) {
	applier, ok := e.appliers[res.Kind]
	if !ok {
		return StatusFailed, nil, fmt.Errorf("no applier registered for kind %s", res.Kind)
	}

	hash := HashAttributes(res.Attributes)

	if hasPrev && prev.Hash == hash {
		var exists bool
		err := retry.Do(ctx, func() error {
			var probeErr error
			exists, probeErr = applier.Exists(ctx, res)
			return probeErr
		}, e.retryOpts...)
		if err != nil {
			return StatusFailed, nil, fmt.Errorf("failed to check %s: %w", res.ID, err)
		}
		if exists {
			return StatusSkipped, &prev, nil
		}
		// Unchanged but gone remotely: recreate below.
	}

	status := StatusCreated
	operation := applier.Create
	if hasPrev && prev.Hash != hash {
		status = StatusUpdated
		operation = applier.Update
	}

	err := retry.Do(ctx, func() error { return operation(ctx, res) }, e.retryOpts...)
	if err != nil {
		return StatusFailed, nil, fmt.Errorf("failed to apply %s: %w", res.ID, err)
	}

	return status, &state.Record{
		ID:         res.ID,
		Kind:       res.Kind,
		Hash:       hash,
		Attributes: res.Attributes,
		AppliedAt:  e.now().UTC(),
	}, nil
}

// deleteRemoved handles resources present in previous state but absent from
// the desired set. Protected kinds are dropped from tracked state without
// any delete call; everything else is deleted.
func (e *Engine) deleteRemoved(ctx context.Context, plan *Plan, records map[string]state.Record, result *Result) {
	desired := make(map[string]bool, len(plan.Order))
	for _, id := range plan.Order {
		desired[id] = true
	}
	// Secret-blocked resources are still part of the desired configuration;
	// a blocked run must not tear them down.
	for id := range plan.SecretBlocked {
		desired[id] = true
	}
	for _, id := range plan.BlockedDependents {
		desired[id] = true
	}

	var removed []string
	for id := range records {
		if !desired[id] {
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)

	for _, id := range removed {
		rec := records[id]

		if template.IsProtectedKind(rec.Kind) {
			delete(records, id)
			result.ProtectedKept = append(result.ProtectedKept, id)
			e.log.Info("protected resource left untouched, dropped from tracked state", "id", id)
			continue
		}

		applier, ok := e.appliers[rec.Kind]
		if !ok {
			result.DeleteFailures[id] = fmt.Errorf("no applier registered for kind %s", rec.Kind)
			continue
		}

		start := time.Now()
		err := retry.Do(ctx, func() error { return applier.Delete(ctx, rec) }, e.retryOpts...)
		if err != nil {
			result.DeleteFailures[id] = err
			e.log.Error(err, "failed to delete resource", "id", id)
			continue
		}
		delete(records, id)
		result.Deleted = append(result.Deleted, id)
		e.rec.ObserveApply(id, rec.Kind, metrics.OutcomeDeleted, time.Since(start))
		e.log.Info("resource deleted", "id", id)
	}
}

// Destroy removes every tracked non-protected resource and forgets the
// protected ones, leaving their external state (e.g. log data) intact.
func (e *Engine) Destroy(ctx context.Context) (*Result, error) {
	records, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load apply records: %w", err)
	}

	result := newResult()
	empty := &Plan{}
	remaining := make(map[string]state.Record, len(records))
	for id, rec := range records {
		remaining[id] = rec
	}

	e.deleteRemoved(ctx, empty, remaining, result)

	if err := e.store.Save(context.WithoutCancel(ctx), remaining); err != nil {
		return result, fmt.Errorf("failed to save apply records: %w", err)
	}
	return result, nil
}

func outcomeLabel(status Status) string {
	switch status {
	case StatusCreated:
		return metrics.OutcomeCreated
	case StatusUpdated:
		return metrics.OutcomeUpdated
	case StatusSkipped:
		return metrics.OutcomeSkipped
	default:
		return metrics.OutcomeFailed
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func kindOf(id string) string {
	if i := strings.IndexByte(id, '/'); i > 0 {
		return id[:i]
	}
	return id
}
