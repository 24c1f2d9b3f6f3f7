package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qovery/addonctl/internal/graph"
	"github.com/qovery/addonctl/internal/state"
	"github.com/qovery/addonctl/internal/template"
	"github.com/qovery/addonctl/internal/util/retry"
)

// memoryStore keeps records in memory for tests.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]state.Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]state.Record{}}
}

func (m *memoryStore) Load(context.Context) (map[string]state.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]state.Record, len(m.records))
	for id, rec := range m.records {
		out[id] = rec
	}
	return out, nil
}

func (m *memoryStore) Save(_ context.Context, records map[string]state.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]state.Record, len(records))
	for id, rec := range records {
		m.records[id] = rec
	}
	return nil
}

// fakeApplier records calls and simulates remote existence.
type fakeApplier struct {
	mu       sync.Mutex
	remote   map[string]bool
	calls    []string
	failures map[string]error // keyed by "op:id", consumed on first call
	blocked  chan struct{}    // when set, Create blocks until closed
	maxSeen  int
	active   int
}

func newFakeApplier() *fakeApplier {
	return &fakeApplier{remote: map[string]bool{}, failures: map[string]error{}}
}

func (f *fakeApplier) record(op, id string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op+":"+id)
	err := f.failures[op+":"+id]
	delete(f.failures, op+":"+id)
	f.mu.Unlock()
	return err
}

func (f *fakeApplier) callsOf(ops ...string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, call := range f.calls {
		for _, op := range ops {
			if len(call) > len(op) && call[:len(op)+1] == op+":" {
				out = append(out, call)
			}
		}
	}
	return out
}

func (f *fakeApplier) Exists(_ context.Context, res *template.Resolved) (bool, error) {
	if err := f.record("exists", res.ID); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remote[res.ID], nil
}

func (f *fakeApplier) Create(ctx context.Context, res *template.Resolved) error {
	f.mu.Lock()
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	blocked := f.blocked
	f.mu.Unlock()

	if blocked != nil {
		select {
		case <-blocked:
		case <-ctx.Done():
			f.mu.Lock()
			f.active--
			f.mu.Unlock()
			return ctx.Err()
		}
	}

	err := f.record("create", res.ID)
	f.mu.Lock()
	f.active--
	if err == nil {
		f.remote[res.ID] = true
	}
	f.mu.Unlock()
	return err
}

func (f *fakeApplier) Update(_ context.Context, res *template.Resolved) error {
	return f.record("update", res.ID)
}

func (f *fakeApplier) Delete(_ context.Context, rec state.Record) error {
	if err := f.record("delete", rec.ID); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.remote, rec.ID)
	f.mu.Unlock()
	return nil
}

func fastRetry() []retry.Option {
	return []retry.Option{retry.WithMaxAttempts(3), retry.WithInitialDelay(time.Millisecond)}
}

func testEngine(store state.Store, applier Applier) *Engine {
	return New(store, map[string]Applier{
		template.KindHelmRelease: applier,
		template.KindBucket:      applier,
	}, Options{Retry: fastRetry(), Logger: logr.Discard()})
}

func mustPlan(t *testing.T, resources ...*template.Resolved) *Plan {
	t.Helper()
	g, err := graph.Build(resources)
	require.NoError(t, err)
	return &Plan{Graph: g, Order: g.Order()}
}

func resource(id string, attrs map[string]string, deps ...string) *template.Resolved {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &template.Resolved{
		ID:         id,
		Kind:       kindOf(id),
		Attributes: attrs,
		DependsOn:  deps,
		Protected:  template.IsProtectedKind(kindOf(id)),
	}
}

func TestApply_CreatesEverythingOnFirstRun(t *testing.T) {
	store := newMemoryStore()
	applier := newFakeApplier()
	eng := testEngine(store, applier)

	plan := mustPlan(t,
		resource("bucket/logs", map[string]string{"name": "qovery-logs-abc123"}),
		resource("helm_release/loki", map[string]string{"chart": "loki"}, "bucket/logs"),
	)

	result, err := eng.Apply(context.Background(), plan)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, StatusCreated, result.Outcomes["bucket/logs"].Status)
	assert.Equal(t, StatusCreated, result.Outcomes["helm_release/loki"].Status)

	creates := applier.callsOf("create")
	require.Equal(t, []string{"create:bucket/logs", "create:helm_release/loki"}, creates)

	saved, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, saved, 2)
	assert.NotEmpty(t, saved["bucket/logs"].Hash)
}

func TestApply_SecondRunIsNoOp(t *testing.T) {
	store := newMemoryStore()
	applier := newFakeApplier()
	eng := testEngine(store, applier)

	plan := mustPlan(t,
		resource("bucket/logs", map[string]string{"name": "qovery-logs-abc123"}),
		resource("helm_release/loki", map[string]string{"chart": "loki"}, "bucket/logs"),
	)

	_, err := eng.Apply(context.Background(), plan)
	require.NoError(t, err)

	result, err := eng.Apply(context.Background(), plan)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, StatusSkipped, result.Outcomes["bucket/logs"].Status)
	assert.Equal(t, StatusSkipped, result.Outcomes["helm_release/loki"].Status)

	// Idempotence: no create, update or delete calls on the second run.
	assert.Len(t, applier.callsOf("create"), 2)
	assert.Empty(t, applier.callsOf("update", "delete"))
}

func TestApply_ChangedResourceAloneIsUpdated(t *testing.T) {
	store := newMemoryStore()
	applier := newFakeApplier()
	eng := testEngine(store, applier)

	bucket := resource("bucket/logs", map[string]string{"name": "qovery-logs-abc123"})
	loki := func(memory string) *template.Resolved {
		return resource("helm_release/loki", map[string]string{
			"chart":                          "loki",
			"values.resources.limits.memory": memory,
		}, "bucket/logs")
	}

	_, err := eng.Apply(context.Background(), mustPlan(t, bucket, loki("300Mi")))
	require.NoError(t, err)

	result, err := eng.Apply(context.Background(), mustPlan(t, bucket, loki("600Mi")))
	require.NoError(t, err)

	// Exactly one update, for the changed release; the bucket is skipped.
	assert.Equal(t, StatusUpdated, result.Outcomes["helm_release/loki"].Status)
	assert.Equal(t, StatusSkipped, result.Outcomes["bucket/logs"].Status)
	assert.Equal(t, []string{"update:helm_release/loki"}, applier.callsOf("update"))
}

func TestApply_RecreatesWhenGoneRemotely(t *testing.T) {
	store := newMemoryStore()
	applier := newFakeApplier()
	eng := testEngine(store, applier)

	plan := mustPlan(t, resource("helm_release/loki", map[string]string{"chart": "loki"}))

	_, err := eng.Apply(context.Background(), plan)
	require.NoError(t, err)

	// Simulate external drift: the release vanished.
	applier.mu.Lock()
	delete(applier.remote, "helm_release/loki")
	applier.mu.Unlock()

	result, err := eng.Apply(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, result.Outcomes["helm_release/loki"].Status)
	assert.Len(t, applier.callsOf("create"), 2)
}

func TestApply_ProtectedResourceNeverDeleted(t *testing.T) {
	store := newMemoryStore()
	applier := newFakeApplier()
	eng := testEngine(store, applier)

	full := mustPlan(t,
		resource("bucket/logs", map[string]string{"name": "qovery-logs-abc123"}),
		resource("helm_release/loki", map[string]string{"chart": "loki"}, "bucket/logs"),
	)
	_, err := eng.Apply(context.Background(), full)
	require.NoError(t, err)

	// The bucket leaves the desired set; across several applies it must
	// never receive a delete call.
	withoutBucket := mustPlan(t, resource("helm_release/loki", map[string]string{"chart": "loki"}))
	var result *Result
	for range 3 {
		result, err = eng.Apply(context.Background(), withoutBucket)
		require.NoError(t, err)
	}

	for _, call := range applier.callsOf("delete") {
		assert.NotEqual(t, "delete:bucket/logs", call)
	}
	// Dropped from tracked state on the first run it went missing.
	saved, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, saved, "bucket/logs")
	assert.Empty(t, result.Deleted)
}

func TestApply_RemovedUnprotectedResourceIsDeleted(t *testing.T) {
	store := newMemoryStore()
	applier := newFakeApplier()
	eng := testEngine(store, applier)

	_, err := eng.Apply(context.Background(), mustPlan(t,
		resource("helm_release/loki", map[string]string{"chart": "loki"}),
		resource("helm_release/nginx-ingress", map[string]string{"chart": "ingress-nginx"}),
	))
	require.NoError(t, err)

	result, err := eng.Apply(context.Background(), mustPlan(t,
		resource("helm_release/nginx-ingress", map[string]string{"chart": "ingress-nginx"}),
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"helm_release/loki"}, result.Deleted)
	assert.Equal(t, []string{"delete:helm_release/loki"}, applier.callsOf("delete"))

	saved, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, saved, "helm_release/loki")
}

func TestApply_FailureHaltsDependentsButNotIndependentBranches(t *testing.T) {
	store := newMemoryStore()
	applier := newFakeApplier()
	applier.failures["create:bucket/logs"] = retry.Terminal(errors.New("access denied"))
	eng := testEngine(store, applier)

	plan := mustPlan(t,
		resource("bucket/logs", map[string]string{"name": "qovery-logs-abc123"}),
		resource("helm_release/loki", map[string]string{"chart": "loki"}, "bucket/logs"),
		resource("helm_release/loki-canary", map[string]string{"chart": "loki-canary"}, "helm_release/loki"),
		resource("helm_release/nginx-ingress", map[string]string{"chart": "ingress-nginx"}),
	)

	result, err := eng.Apply(context.Background(), plan)
	require.NoError(t, err)
	assert.False(t, result.Succeeded())

	assert.Equal(t, StatusFailed, result.Outcomes["bucket/logs"].Status)
	assert.Equal(t, StatusNeverAttempted, result.Outcomes["helm_release/loki"].Status)
	assert.Equal(t, StatusNeverAttempted, result.Outcomes["helm_release/loki-canary"].Status)
	// Independent branch still applied.
	assert.Equal(t, StatusCreated, result.Outcomes["helm_release/nginx-ingress"].Status)

	first := result.FirstFailure()
	require.NotNil(t, first)
	assert.Equal(t, "bucket/logs", first.ID)
}

func TestApply_TransientErrorsAreRetried(t *testing.T) {
	store := newMemoryStore()
	applier := newFakeApplier()
	applier.failures["create:helm_release/loki"] = errors.New("rate limited")
	eng := testEngine(store, applier)

	result, err := eng.Apply(context.Background(), mustPlan(t,
		resource("helm_release/loki", map[string]string{"chart": "loki"}),
	))
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, result.Outcomes["helm_release/loki"].Status)
	assert.GreaterOrEqual(t, len(applier.callsOf("create")), 2)
}

func TestApply_TransientExistenceCheckErrorIsRetried(t *testing.T) {
	store := newMemoryStore()
	applier := newFakeApplier()
	eng := testEngine(store, applier)

	plan := mustPlan(t, resource("helm_release/loki", map[string]string{"chart": "loki"}))

	_, err := eng.Apply(context.Background(), plan)
	require.NoError(t, err)

	// A timeout during the unchanged-hash existence check must not fail the
	// resource on the first attempt.
	applier.failures["exists:helm_release/loki"] = errors.New("connection timed out")

	result, err := eng.Apply(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, result.Outcomes["helm_release/loki"].Status)
	assert.GreaterOrEqual(t, len(applier.callsOf("exists")), 2)
	assert.Len(t, applier.callsOf("create"), 1)
}

func TestApply_TerminalErrorNotRetried(t *testing.T) {
	store := newMemoryStore()
	applier := newFakeApplier()
	applier.failures["create:helm_release/loki"] = retry.Terminal(errors.New("invalid values"))
	eng := testEngine(store, applier)

	result, err := eng.Apply(context.Background(), mustPlan(t,
		resource("helm_release/loki", map[string]string{"chart": "loki"}),
	))
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Outcomes["helm_release/loki"].Status)
	assert.Len(t, applier.callsOf("create"), 1)
}

func TestApply_CancellationDistinguishesOutcomes(t *testing.T) {
	store := newMemoryStore()
	applier := newFakeApplier()
	applier.blocked = make(chan struct{})
	eng := New(store, map[string]Applier{
		template.KindHelmRelease: applier,
		template.KindBucket:      applier,
	}, Options{Concurrency: 1, Retry: fastRetry(), Logger: logr.Discard()})

	plan := mustPlan(t,
		resource("helm_release/a", map[string]string{"chart": "a"}),
		resource("helm_release/b", map[string]string{"chart": "b"}, "helm_release/a"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result, err := eng.Apply(ctx, plan)
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.False(t, result.Succeeded())
	// a was in flight when cancellation hit; b was never started.
	assert.Equal(t, StatusInterrupted, result.Outcomes["helm_release/a"].Status)
	assert.Equal(t, StatusNeverAttempted, result.Outcomes["helm_release/b"].Status)
}

func TestApply_ConcurrencyIsBounded(t *testing.T) {
	store := newMemoryStore()
	applier := newFakeApplier()
	applier.blocked = make(chan struct{})
	eng := New(store, map[string]Applier{
		template.KindHelmRelease: applier,
	}, Options{Concurrency: 2, Retry: fastRetry(), Logger: logr.Discard()})

	plan := mustPlan(t,
		resource("helm_release/a", map[string]string{"chart": "a"}),
		resource("helm_release/b", map[string]string{"chart": "b"}),
		resource("helm_release/c", map[string]string{"chart": "c"}),
		resource("helm_release/d", map[string]string{"chart": "d"}),
	)

	go func() {
		time.Sleep(30 * time.Millisecond)
		close(applier.blocked)
	}()

	result, err := eng.Apply(context.Background(), plan)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())

	applier.mu.Lock()
	maxSeen := applier.maxSeen
	applier.mu.Unlock()
	assert.LessOrEqual(t, maxSeen, 2)
}

func TestApply_SecretBlockedResourcesFailWithoutCalls(t *testing.T) {
	store := newMemoryStore()
	applier := newFakeApplier()
	eng := testEngine(store, applier)

	g, err := graph.Build([]*template.Resolved{
		resource("bucket/logs", map[string]string{"name": "qovery-logs-abc123"}),
	})
	require.NoError(t, err)
	secretErr := fmt.Errorf("secret parameters unavailable")
	plan := &Plan{
		Graph:             g,
		Order:             g.Order(),
		SecretBlocked:     map[string]error{"helm_release/loki": secretErr},
		BlockedDependents: []string{"helm_release/loki-canary"},
	}

	result, err := eng.Apply(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, StatusCreated, result.Outcomes["bucket/logs"].Status)
	assert.Equal(t, StatusFailed, result.Outcomes["helm_release/loki"].Status)
	assert.ErrorIs(t, result.Outcomes["helm_release/loki"].Err, secretErr)
	assert.Equal(t, StatusNeverAttempted, result.Outcomes["helm_release/loki-canary"].Status)

	// No infrastructure call for the blocked subtree.
	for _, call := range applier.calls {
		assert.NotContains(t, call, "loki")
	}
}

func TestApply_SecretBlockedResourceNotDeleted(t *testing.T) {
	store := newMemoryStore()
	applier := newFakeApplier()
	eng := testEngine(store, applier)

	// loki was applied previously.
	_, err := eng.Apply(context.Background(), mustPlan(t,
		resource("helm_release/loki", map[string]string{"chart": "loki"}),
	))
	require.NoError(t, err)

	// This run it is blocked by an unavailable secret: it is still part of
	// the desired configuration and must not be torn down.
	plan := &Plan{
		Graph:         mustPlan(t).Graph,
		SecretBlocked: map[string]error{"helm_release/loki": errors.New("vault down")},
	}
	result, err := eng.Apply(context.Background(), plan)
	require.NoError(t, err)

	assert.Empty(t, result.Deleted)
	saved, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, saved, "helm_release/loki")
}

func TestDestroy_RemovesTrackedResourcesButKeepsProtectedState(t *testing.T) {
	store := newMemoryStore()
	applier := newFakeApplier()
	eng := testEngine(store, applier)

	_, err := eng.Apply(context.Background(), mustPlan(t,
		resource("bucket/logs", map[string]string{"name": "qovery-logs-abc123"}),
		resource("helm_release/loki", map[string]string{"chart": "loki"}, "bucket/logs"),
	))
	require.NoError(t, err)

	result, err := eng.Destroy(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"helm_release/loki"}, result.Deleted)
	assert.Equal(t, []string{"bucket/logs"}, result.ProtectedKept)
	assert.Equal(t, []string{"delete:helm_release/loki"}, applier.callsOf("delete"))

	saved, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestHashAttributes_StableAndOrderIndependent(t *testing.T) {
	a := HashAttributes(map[string]string{"x": "1", "y": "2"})
	b := HashAttributes(map[string]string{"y": "2", "x": "1"})
	c := HashAttributes(map[string]string{"x": "1", "y": "3"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	// Key/value boundaries matter: {"x":"1y","":"2"} style collisions.
	assert.NotEqual(t,
		HashAttributes(map[string]string{"ab": "c"}),
		HashAttributes(map[string]string{"a": "bc"}),
	)
}
