// Package metrics records per-resource apply outcomes and durations.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels reported per apply step.
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeDeleted = "deleted"
	OutcomeFailed  = "failed"
)

// Recorder receives one observation per finished resource operation.
type Recorder interface {
	ObserveApply(resourceID, kind, outcome string, duration time.Duration)
}

// Nop discards all observations. Default for library use and tests.
type Nop struct{}

// ObserveApply implements Recorder.
func (Nop) ObserveApply(string, string, string, time.Duration) {}

// Prometheus is a Recorder backed by prometheus collectors. Only the
// resource kind is used as a label to keep cardinality bounded.
type Prometheus struct {
	applies   *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewPrometheus creates a recorder and registers its collectors.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		applies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "addonctl",
			Name:      "resource_applies_total",
			Help:      "Resource apply operations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "addonctl",
			Name:      "resource_apply_duration_seconds",
			Help:      "Duration of resource apply operations.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"kind"}),
	}
	reg.MustRegister(p.applies, p.durations)
	return p
}

// ObserveApply implements Recorder.
func (p *Prometheus) ObserveApply(_, kind, outcome string, duration time.Duration) {
	p.applies.WithLabelValues(kind, outcome).Inc()
	p.durations.WithLabelValues(kind).Observe(duration.Seconds())
}

// StepRecord captures the timing of one resource operation.
type StepRecord struct {
	ResourceID string
	Kind       string
	Outcome    string
	Duration   time.Duration
}

// Journal keeps an in-memory record of each step in completion order for
// end-of-run reporting, forwarding observations to a wrapped recorder.
type Journal struct {
	mu      sync.Mutex
	inner   Recorder
	records []StepRecord
}

// NewJournal wraps another recorder; pass Nop{} to only collect records.
func NewJournal(inner Recorder) *Journal {
	return &Journal{inner: inner}
}

// ObserveApply implements Recorder.
func (j *Journal) ObserveApply(resourceID, kind, outcome string, duration time.Duration) {
	j.inner.ObserveApply(resourceID, kind, outcome, duration)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, StepRecord{
		ResourceID: resourceID,
		Kind:       kind,
		Outcome:    outcome,
		Duration:   duration,
	})
}

// Steps returns a copy of the collected records.
func (j *Journal) Steps() []StepRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]StepRecord(nil), j.records...)
}
