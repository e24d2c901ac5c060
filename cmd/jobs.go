package main

import (
	"context"
	"errors"
	"time"

	"pbsacct/internal/jobs"
	"pbsacct/internal/service"
	"pbsacct/pkg/logger"
)

func (app *Application) initJobs() error {
	schedule := app.config.Schedule
	if !schedule.Enabled {
		logger.InfoCtx(app.ctx, "scheduled runs disabled, only manual triggers are served")
		return nil
	}

	manager := jobs.NewManager(app.ctx, nil)
	manager.Register(newPipelineJob(schedule.Interval, schedule.AlignToInterval,
		app.config.Shredder.LogDir != "", app.runService))
	if app.config.Shredder.LogDir == "" {
		logger.WarnCtx(app.ctx, "shredder.log_dir not set, scheduled ingest disabled")
	}

	app.jobsManager = manager
	return nil
}

// pipelineJob shreds the files that appeared since the last ingest, then rebuilds
// every rollup. Without a log directory only the rebuild runs.
type pipelineJob struct {
	interval   time.Duration
	align      bool
	ingest     bool
	runService *service.RunService
}

func newPipelineJob(interval time.Duration, align, ingest bool, runService *service.RunService) jobs.Job {
	return &pipelineJob{interval: interval, align: align, ingest: ingest, runService: runService}
}

func (j *pipelineJob) Name() string {
	if j.ingest {
		return "ingest-aggregate"
	}
	return "aggregate"
}

func (j *pipelineJob) Interval() time.Duration {
	return j.interval
}

func (j *pipelineJob) AlignToInterval() bool {
	return j.align
}

func (j *pipelineJob) Run(ctx context.Context) error {
	var err error
	if j.ingest {
		_, _, err = j.runService.IngestAndAggregate(ctx)
	} else {
		_, err = j.runService.Aggregate(ctx)
	}
	if errors.Is(err, service.ErrRunInProgress) {
		return nil
	}
	return err
}
