package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"k8s.io/utils/clock"

	"pbsacct/app/handler"
	"pbsacct/app/router"
	"pbsacct/internal/service"
	"pbsacct/internal/shredder"
	"pbsacct/pkg/config"
	"pbsacct/pkg/lock"
	"pbsacct/pkg/logger"
	"pbsacct/pkg/store/memory"
	mysqlstore "pbsacct/pkg/store/mysql"
	redisstore "pbsacct/pkg/store/redis"
)

// initConfig loads configuration and applies command line overrides
func (app *Application) initConfig() error {
	if err := config.Init(app.opts.ConfigPath); err != nil {
		return err
	}
	app.config = config.GlobalConfig

	if app.opts.Verbose {
		app.config.Logger.Level = "debug"
	}
	if app.opts.Dir != "" {
		app.config.Shredder.LogDir = app.opts.Dir
	}
	if app.opts.Host != "" {
		app.config.Shredder.Host = app.opts.Host
	}
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	return logger.Init(app.config.Logger)
}

// initStore opens the configured persistence provider
func (app *Application) initStore() error {
	switch provider := app.config.StoreProvider(); provider {
	case "memory":
		logger.WarnCtx(app.ctx, "using in-memory store, nothing is persisted")
		app.store = memory.NewStore()
	case "mysql":
		cfg := app.config.MySQL
		dsn := mysqlstore.DSN(cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
		repo, err := mysqlstore.NewRepository(dsn, logger.Named("mysql"))
		if err != nil {
			return err
		}
		app.mysqlStore = mysqlstore.NewStore(repo)
		app.store = app.mysqlStore
	default:
		return fmt.Errorf("unknown store provider %q", provider)
	}

	app.registerCleanup(func() error {
		if err := app.store.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
		logger.DebugCtx(app.ctx, "Store has been closed")
		return nil
	})
	return nil
}

// initRedis connects to redis when configured; without it locks run in single-instance mode
func (app *Application) initRedis() error {
	if app.config.Redis.Addr == "" {
		logger.WarnCtx(app.ctx, "redis not configured, runs are not serialized across instances")
		return nil
	}

	client, err := redisstore.NewRedisClient(app.ctx, app.config.Redis)
	if err != nil {
		return err
	}

	app.redisClient = client
	app.registerCleanup(func() error {
		if err := client.Close(); err != nil {
			return fmt.Errorf("close redis: %w", err)
		}
		logger.DebugCtx(app.ctx, "Redis connection has been closed")
		return nil
	})
	return nil
}

// initServices wires the shredder, aggregator and run service
func (app *Application) initServices() error {
	clk := clock.RealClock{}
	shredderCfg := app.config.Shredder
	loc := shredderCfg.Location()

	parser := shredder.NewParser(logger.Named("parser"),
		shredder.WithLocation(loc),
		shredder.WithDateLayout(shredderCfg.DateFormat),
		shredder.WithHost(shredderCfg.Host),
	)
	app.ingestService = service.NewIngestService(
		app.store,
		shredder.NewShredder(parser, app.store, logger.Named("shredder")),
		shredder.NewFileSelector(clk, loc, logger.Named("selector")),
		logger.Named("ingest"),
	)

	resolver := service.NewDimensionResolver(app.store, logger.Named("resolver"))
	intervals := service.NewIntervalCalculator(app.store, clk, loc, *app.config.Aggregator.EndOffsetDays, logger.Named("intervals"))
	app.aggregator = service.NewAggregator(app.store, resolver, intervals, clk, logger.Named("aggregator"))

	var redisClient *redis.Client
	if app.redisClient != nil {
		redisClient = app.redisClient.GetClient()
	}
	aggCfg := app.config.Aggregator
	ingestLock := lock.NewRedisDistributedLock(redisClient, aggCfg.IngestLockKey, aggCfg.LockTTL)
	aggregateLock := lock.NewRedisDistributedLock(redisClient, aggCfg.LockKey, aggCfg.LockTTL)

	app.runService = service.NewRunService(
		app.ingestService,
		app.aggregator,
		ingestLock,
		aggregateLock,
		service.NewRunTracker(clk),
		shredderCfg.LogDir,
	)
	return nil
}

// initHTTPServer sets up the operational API
func (app *Application) initHTTPServer() error {
	gin.SetMode(app.config.Server.Mode)
	app.ginEngine = gin.New()

	runHandler := handler.NewRunHandler(app.ctx, app.runService)
	router.NewRouter(runHandler, app.config.Server.APIKey).Setup(app.ginEngine)

	app.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.ginEngine,
	}
	return nil
}
