package service

import (
	"context"
	"errors"
	"fmt"

	"pbsacct/pkg/lock"
	"pbsacct/pkg/logger"
)

// ErrRunInProgress another instance holds the lock for this stage
var ErrRunInProgress = errors.New("another run is in progress")

// RunService runs pipeline stages under their distributed locks and records the outcome
type RunService struct {
	ingest        *IngestService
	aggregator    *Aggregator
	ingestLock    lock.DistributedLock
	aggregateLock lock.DistributedLock
	tracker       *RunTracker
	logDir        string
}

// NewRunService creates a run service. Nil locks disable serialization.
func NewRunService(ingest *IngestService, aggregator *Aggregator, ingestLock, aggregateLock lock.DistributedLock, tracker *RunTracker, logDir string) *RunService {
	if tracker == nil {
		tracker = NewRunTracker(nil)
	}
	return &RunService{
		ingest:        ingest,
		aggregator:    aggregator,
		ingestLock:    ingestLock,
		aggregateLock: aggregateLock,
		tracker:       tracker,
		logDir:        logDir,
	}
}

// Tracker returns the run tracker
func (s *RunService) Tracker() *RunTracker {
	return s.tracker
}

// LogDir returns the configured accounting directory
func (s *RunService) LogDir() string {
	return s.logDir
}

// IngestDirectory ingests new files from dir, the configured directory when dir is empty
func (s *RunService) IngestDirectory(ctx context.Context, dir string) (*Run, error) {
	if dir == "" {
		dir = s.logDir
	}
	if dir == "" {
		return nil, fmt.Errorf("no accounting directory configured")
	}

	return s.run(ctx, RunKindIngest, s.ingestLock, func(ctx context.Context) (RunResult, error) {
		summary, err := s.ingest.IngestDirectory(ctx, dir)
		return RunResult{Ingest: summary}, err
	})
}

// IngestFile ingests a single file, or stdin for "-"
func (s *RunService) IngestFile(ctx context.Context, path string) (*Run, error) {
	return s.run(ctx, RunKindIngest, s.ingestLock, func(ctx context.Context) (RunResult, error) {
		summary, err := s.ingest.IngestFile(ctx, path)
		return RunResult{Ingest: summary}, err
	})
}

// Aggregate performs a full rebuild
func (s *RunService) Aggregate(ctx context.Context) (*Run, error) {
	return s.run(ctx, RunKindAggregate, s.aggregateLock, func(ctx context.Context) (RunResult, error) {
		report, err := s.aggregator.Aggregate(ctx)
		return RunResult{Aggregate: report}, err
	})
}

// IngestAndAggregate ingests the configured directory and then rebuilds the rollups.
// The rebuild is skipped when the ingest fails or another instance is ingesting.
func (s *RunService) IngestAndAggregate(ctx context.Context) (ingest, aggregate *Run, err error) {
	ingest, err = s.IngestDirectory(ctx, "")
	if err != nil {
		return ingest, nil, err
	}
	aggregate, err = s.Aggregate(ctx)
	return ingest, aggregate, err
}

// run returns a snapshot of the finished run
func (s *RunService) run(ctx context.Context, kind RunKind, l lock.DistributedLock, fn func(ctx context.Context) (RunResult, error)) (*Run, error) {
	run := s.tracker.Start(kind)
	ctx = logger.WithRunID(ctx, run.ID)

	if l != nil {
		acquired, err := l.TryLock(ctx)
		if err != nil {
			done := s.tracker.Finish(run, RunStatusFailed, RunResult{}, err)
			return &done, fmt.Errorf("failed to acquire %s lock: %w", kind, err)
		}
		if !acquired {
			done := s.tracker.Finish(run, RunStatusSkipped, RunResult{}, ErrRunInProgress)
			logger.InfoCtx(ctx, "another instance is running %s, skipping", kind)
			return &done, ErrRunInProgress
		}
		defer func() {
			if err := l.Unlock(ctx); err != nil {
				logger.WarnCtx(ctx, "failed to release %s lock: %v", kind, err)
			}
		}()
	}

	logger.InfoCtx(ctx, "%s run %s started", kind, run.ID)
	result, err := fn(ctx)
	if err != nil {
		done := s.tracker.Finish(run, RunStatusFailed, result, err)
		logger.ErrorCtx(ctx, "%s run %s failed: %v", kind, run.ID, err)
		return &done, err
	}
	done := s.tracker.Finish(run, RunStatusSucceeded, result, nil)
	logger.InfoCtx(ctx, "%s run %s finished", kind, run.ID)
	return &done, nil
}
