package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testingclock "k8s.io/utils/clock/testing"
)

type countingJob struct {
	name     string
	interval time.Duration
	align    bool
	runs     atomic.Int32
	err      error
}

func (j *countingJob) Name() string            { return j.name }
func (j *countingJob) Interval() time.Duration { return j.interval }
func (j *countingJob) AlignToInterval() bool   { return j.align }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func eventuallyRuns(t *testing.T, job *countingJob, want int32) {
	t.Helper()
	assert.Eventually(t, func() bool { return job.runs.Load() == want }, time.Second, 5*time.Millisecond)
}

func TestManager_RunsImmediatelyThenOnTick(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Date(2026, 10, 18, 10, 17, 0, 0, time.UTC))
	m := NewManager(context.Background(), clk)
	job := &countingJob{name: "ingest", interval: time.Hour, err: errors.New("ignored")}
	m.Register(job)
	m.Register(nil)
	assert.Equal(t, []string{"ingest"}, m.Jobs())

	m.Start()
	m.Start() // second start is a no-op
	eventuallyRuns(t, job, 1)

	assert.Eventually(t, clk.HasWaiters, time.Second, 5*time.Millisecond)
	clk.Step(time.Hour)
	eventuallyRuns(t, job, 2)

	m.Stop()
	m.Wait()
}

func TestManager_AlignedJobWaitsForBoundary(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Date(2026, 10, 18, 10, 17, 0, 0, time.UTC))
	m := NewManager(context.Background(), clk)
	job := &countingJob{name: "aggregate", interval: time.Hour, align: true}
	m.Register(job)
	m.Start()

	assert.Eventually(t, clk.HasWaiters, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), job.runs.Load())

	clk.Step(43 * time.Minute)
	eventuallyRuns(t, job, 1)

	m.Stop()
	m.Wait()
}

func TestManager_StopBeforeAlignedRun(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Date(2026, 10, 18, 10, 17, 0, 0, time.UTC))
	m := NewManager(context.Background(), clk)
	job := &countingJob{name: "aggregate", interval: 24 * time.Hour, align: true}
	m.Register(job)
	m.Start()

	assert.Eventually(t, clk.HasWaiters, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Wait()
	assert.Equal(t, int32(0), job.runs.Load())
}
