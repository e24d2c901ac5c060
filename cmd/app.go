package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"

	"pbsacct/internal/jobs"
	"pbsacct/internal/service"
	"pbsacct/pkg/config"
	"pbsacct/pkg/interfaces"
	"pbsacct/pkg/logger"
	mysqlstore "pbsacct/pkg/store/mysql"
	redisstore "pbsacct/pkg/store/redis"
)

var errMutuallyExclusive = errors.New("--in and --dir are mutually exclusive")

// Options command line overrides
type Options struct {
	ConfigPath string
	Verbose    bool
	In         string
	Dir        string
	Host       string
	Serve      bool
}

// Application manages the lifecycle of the entire application
type Application struct {
	opts *Options

	// Infrastructure components
	config      *config.Config
	store       interfaces.Store
	mysqlStore  *mysqlstore.Store
	redisClient *redisstore.RedisClient

	// Service layer
	ingestService *service.IngestService
	aggregator    *service.Aggregator
	runService    *service.RunService

	// HTTP server, serve mode only
	httpServer *http.Server
	ginEngine  *gin.Engine

	// Background tasks, serve mode only
	jobsManager *jobs.Manager

	// Context management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Cleanup functions, run in reverse registration order
	cleanupFuncs []func() error
}

// NewApplication creates a new Application instance
func NewApplication(opts *Options) *Application {
	if opts == nil {
		opts = &Options{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		opts:         opts,
		ctx:          ctx,
		cancel:       cancel,
		cleanupFuncs: make([]func() error, 0),
	}
}

type initStep struct {
	name string
	fn   func() error
}

// Initialize initializes all application components
func (app *Application) Initialize() error {
	steps := []initStep{
		{"Configuration", app.initConfig},
		{"Logging", app.initLogger},
		{"Store", app.initStore},
		{"Redis", app.initRedis},
		{"Service Layer", app.initServices},
	}
	if app.opts.Serve {
		steps = append(steps,
			initStep{"Background Tasks", app.initJobs},
			initStep{"HTTP Server", app.initHTTPServer},
		)
	}

	for _, step := range steps {
		logger.DebugCtx(app.ctx, "Initializing %s...", step.name)
		if err := step.fn(); err != nil {
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		logger.DebugCtx(app.ctx, "%s initialized successfully", step.name)
	}
	return nil
}

// Ingest runs one ingest, from --in when given, otherwise the directory
func (app *Application) Ingest(ctx context.Context) error {
	var (
		run *service.Run
		err error
	)
	if app.opts.In != "" {
		run, err = app.runService.IngestFile(ctx, app.opts.In)
	} else {
		run, err = app.runService.IngestDirectory(ctx, app.opts.Dir)
	}
	if err != nil {
		return err
	}
	if run.Ingest != nil {
		logger.InfoCtx(ctx, "ingest finished: %d files, %d lines, %d events, %d skipped, %d failed",
			len(run.Ingest.Files), run.Ingest.Total.Lines, run.Ingest.Total.Shredded,
			run.Ingest.Total.Skipped, run.Ingest.Total.Failed)
	}
	return nil
}

// Aggregate runs one full rebuild
func (app *Application) Aggregate(ctx context.Context) error {
	run, err := app.runService.Aggregate(ctx)
	if err != nil {
		return err
	}
	if run.Aggregate != nil {
		logger.InfoCtx(ctx, "aggregation finished: %d intervals, %d histogram rows, %d dropped rows in %v",
			run.Aggregate.Intervals, run.Aggregate.HistogramRows, run.Aggregate.DroppedRows, run.Aggregate.Duration)
	}
	return nil
}

// Migrate creates the MySQL schema
func (app *Application) Migrate(ctx context.Context) error {
	if app.mysqlStore == nil {
		return fmt.Errorf("migrate requires providers.store=mysql, got %s", app.config.StoreProvider())
	}
	if err := app.mysqlStore.Migrate(ctx); err != nil {
		return err
	}
	logger.InfoCtx(ctx, "schema migrated")
	return nil
}

// Start starts background jobs and the HTTP server
func (app *Application) Start() error {
	logger.InfoCtx(app.ctx, "Starting application components...")

	// 1. Start background tasks
	if app.jobsManager != nil {
		logger.InfoCtx(app.ctx, "Starting background task manager: %v", app.jobsManager.Jobs())
		app.jobsManager.Start()
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			app.jobsManager.Wait()
		}()
	}

	// 2. Start HTTP server
	if app.httpServer != nil {
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			logger.InfoCtx(app.ctx, "HTTP server listening on: %s", app.httpServer.Addr)
			if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.FatalCtx(app.ctx, "HTTP server error: %v", err)
			}
		}()
	}

	logger.InfoCtx(app.ctx, "All components started successfully")
	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown(timeout time.Duration) error {
	logger.DebugCtx(app.ctx, "Starting graceful shutdown (timeout: %v)...", timeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs error

	// 1. Cancel all background tasks
	app.cancel()
	if app.jobsManager != nil {
		app.jobsManager.Stop()
	}

	// 2. Stop HTTP server
	if app.httpServer != nil {
		logger.InfoCtx(app.ctx, "Shutting down HTTP server...")
		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	// 3. Wait for all background tasks to complete
	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.WarnCtx(app.ctx, "Shutdown timeout, some tasks may not have completed")
	}

	// 4. Execute all cleanup functions
	for i := len(app.cleanupFuncs) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, app.cleanupFuncs[i]())
	}
	app.cleanupFuncs = nil

	logger.Sync()
	return errs
}

// registerCleanup registers cleanup function
func (app *Application) registerCleanup(cleanup func() error) {
	app.cleanupFuncs = append(app.cleanupFuncs, cleanup)
}
