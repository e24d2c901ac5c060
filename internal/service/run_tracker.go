package service

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"
)

// RunKind pipeline stage
type RunKind string

const (
	RunKindIngest    RunKind = "ingest"
	RunKindAggregate RunKind = "aggregate"
)

// RunStatus lifecycle of a run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSkipped   RunStatus = "skipped"
)

// Run one ingest or aggregate invocation
type Run struct {
	ID         string           `json:"id"`
	Kind       RunKind          `json:"kind"`
	Status     RunStatus        `json:"status"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Error      string           `json:"error,omitempty"`
	Ingest     *IngestSummary   `json:"ingest,omitempty"`
	Aggregate  *AggregateReport `json:"aggregate,omitempty"`
}

// RunResult stage-specific outcome attached to a finished run
type RunResult struct {
	Ingest    *IngestSummary
	Aggregate *AggregateReport
}

// RunTracker keeps the most recent run of each kind in memory
type RunTracker struct {
	clock clock.PassiveClock

	mu   sync.RWMutex
	last map[RunKind]*Run
}

// NewRunTracker creates a tracker
func NewRunTracker(clk clock.PassiveClock) *RunTracker {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &RunTracker{clock: clk, last: make(map[RunKind]*Run)}
}

// Start registers a new running run of kind. The returned pointer is only
// mutated through Finish.
func (t *RunTracker) Start(kind RunKind) *Run {
	run := &Run{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    RunStatusRunning,
		StartedAt: t.clock.Now(),
	}
	t.mu.Lock()
	t.last[kind] = run
	t.mu.Unlock()
	return run
}

// Finish marks run done and returns a copy
func (t *RunTracker) Finish(run *Run, status RunStatus, result RunResult, err error) Run {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	run.FinishedAt = &now
	run.Status = status
	run.Ingest = result.Ingest
	run.Aggregate = result.Aggregate
	if err != nil {
		run.Error = err.Error()
	}
	return *run
}

// Last returns a copy of the latest run of kind
func (t *RunTracker) Last(kind RunKind) (Run, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	run, ok := t.last[kind]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

// All returns the latest run of every kind, newest first
func (t *RunTracker) All() []Run {
	t.mu.RLock()
	runs := make([]Run, 0, len(t.last))
	for _, r := range t.last {
		runs = append(runs, *r)
	}
	t.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs
}
