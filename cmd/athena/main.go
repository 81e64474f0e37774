package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fortuna/athena/internal/api/rest"
	"github.com/fortuna/athena/internal/api/websocket"
	"github.com/fortuna/athena/internal/backfill"
	"github.com/fortuna/athena/internal/cache"
	"github.com/fortuna/athena/internal/config"
	"github.com/fortuna/athena/internal/ingest"
	"github.com/fortuna/athena/internal/ingest/bref"
	"github.com/fortuna/athena/internal/logging"
	"github.com/fortuna/athena/internal/metrics"
	"github.com/fortuna/athena/internal/publisher"
	"github.com/fortuna/athena/internal/scheduler"
	"github.com/fortuna/athena/internal/service"
	"github.com/fortuna/athena/internal/store"
	"github.com/fortuna/athena/internal/store/repository"
)

const (
	serviceName    = "athena"
	serviceVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", logging.FieldError, err)
		os.Exit(1)
	}

	base := logging.New(cfg.Log.Level)
	logger := slog.New(base.Handler().WithAttrs(logging.WithCommon(nil, serviceName, serviceVersion)))
	slog.SetDefault(logger)

	logger.Info("starting athena - basketball efficiency service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder, metricsHandler, shutdownMetrics, err := metrics.Setup(ctx, metrics.TelemetryConfig{
		Enabled:      cfg.Telemetry.Enabled,
		ServiceName:  serviceName,
		OtlpEndpoint: cfg.Telemetry.OTLPEndpoint,
		OtlpInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		fatal(logger, "failed to set up telemetry", err)
	}

	checks := map[string]rest.HealthChecker{}

	// Postgres is optional; without it every request goes to the source.
	var (
		db         *store.Database
		tableRepo  *repository.TableRepository
		leagueRepo *repository.LeagueRepository
	)
	if cfg.Database.DSN != "" {
		db, err = store.NewDatabase(cfg.Database.DSN)
		if err != nil {
			fatal(logger, "failed to connect to database", err)
		}
		defer db.Close()
		logger.Info("✓ connected to database")

		if cfg.Database.MigrateOnStart {
			if err := db.RunMigrations(logger); err != nil {
				fatal(logger, "failed to run database migrations", err)
			}
		}

		tableRepo = repository.NewTableRepository(db)
		leagueRepo = repository.NewLeagueRepository(db)
		checks["database"] = db
	} else {
		logger.Warn("no database configured, raw tables will not be stored")
	}

	var (
		tableCache cache.Cache
		redisCache *cache.RedisCache
	)
	switch {
	case cfg.Redis.URL != "":
		redisCache = connectRedis(logger, cfg.Redis.URL)
		defer redisCache.Close()
		tableCache = redisCache
		checks["redis"] = redisCache
	case cfg.Cache.Enabled:
		logger.Info("no redis configured, using in-memory cache")
		tableCache = cache.NewMemoryCache()
	}

	var fetcher bref.Fetcher
	switch cfg.Source.Fetcher {
	case config.FetcherBrowser:
		browser := bref.NewBrowserFetcher(cfg.SourceTimeout())
		defer browser.Close()
		fetcher = browser
	default:
		fetcher = bref.NewHTTPFetcher(cfg.SourceTimeout())
	}

	client := bref.NewClient(fetcher, bref.Options{
		BaseURL:         cfg.Source.BaseURL,
		RequestInterval: cfg.RequestInterval(),
		MaxAttempts:     cfg.Source.MaxAttempts,
		Logger:          logger,
		Recorder:        recorder,
	})

	var (
		tables ingest.TableProvider        = client
		league ingest.LeagueTotalsProvider = client
	)
	if db != nil {
		tables = ingest.Chain{tableRepo, ingest.WriteThroughTables(client, tableRepo, logger)}
		league = ingest.LeagueChain{leagueRepo, ingest.WriteThroughLeague(client, leagueRepo, logger)}
	}
	if cfg.Cache.Enabled && tableCache != nil {
		tables = ingest.NewCachedTables(tables, tableCache, cfg.CacheTTL(), logger, recorder)
		league = ingest.NewCachedLeague(league, tableCache, cfg.CacheTTL(), logger, recorder)
	}

	efficiency := service.NewEfficiencyService(tables, league, service.Options{
		Workers:  cfg.Service.SeasonWorkers,
		Logger:   logger,
		Recorder: recorder,
	})

	// Backfill and refresh copies read the source directly so the store is
	// overwritten with fresh tables.
	var (
		runner          *backfill.Runner
		backfillService *backfill.Service
		backfillDep     rest.Backfill
	)
	if db != nil {
		runner = backfill.NewRunner(client, client, tableRepo, leagueRepo)
		backfillService = backfill.NewService(runner, logger)
		backfillService.Start()
		backfillDep = backfillService
		logger.Info("✓ backfill service started")
	}

	restServer := rest.NewServer(cfg.Server.RESTPort, rest.Dependencies{
		Efficiency:     efficiency,
		Backfill:       backfillDep,
		Checks:         checks,
		MetricsHandler: metricsHandler,
		Logger:         logger,
		Recorder:       recorder,
		Version:        serviceVersion,
	})
	go func() {
		if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(logger, "REST server error", err)
		}
	}()
	logger.Info("✓ REST API server listening", "port", cfg.Server.RESTPort)

	wsServer := websocket.NewServer(efficiency, logger)
	go func() {
		if err := wsServer.Start(cfg.Server.WSPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(logger, "WebSocket server error", err)
		}
	}()
	logger.Info("✓ WebSocket server listening", "port", cfg.Server.WSPort)

	var refresher *scheduler.Refresher
	if cfg.Scheduler.Enabled {
		opts := scheduler.Options{
			Spec:          cfg.Scheduler.Cron,
			CurrentSeason: cfg.CurrentSeason,
			Cache:         tableCache,
			OnRefresh: func(r scheduler.Refresh) {
				notice := websocket.RefreshNotice{
					Season:     r.Key.Label(),
					SeasonType: string(r.Key.Type),
					Mode:       string(r.Mode),
					Rows:       r.Rows,
					At:         r.At,
				}
				if r.Err != nil {
					notice.Error = r.Err.Error()
				}
				wsServer.BroadcastRefresh(notice)
			},
			Logger:   logger,
			Recorder: recorder,
		}
		if runner != nil {
			opts.Copier = runner
		}
		if redisCache != nil {
			opts.Publisher = publisher.NewRedisStreamPublisher(redisCache.Client())
		}

		refresher, err = scheduler.NewRefresher(efficiency, opts)
		if err != nil {
			fatal(logger, "failed to create refresher", err)
		}
		refresher.Start()
		logger.Info("✓ refresh scheduler started", "next_run", refresher.Next())
	}

	logger.Info("✓ athena started successfully",
		"rest", "http://0.0.0.0:"+cfg.Server.RESTPort,
		"websocket", "ws://0.0.0.0:"+cfg.Server.WSPort,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down athena gracefully")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if refresher != nil {
		if err := refresher.Stop(shutdownCtx); err != nil {
			logging.Error(logger, "refresher shutdown error", err)
		}
	}
	if backfillService != nil {
		if err := backfillService.Shutdown(shutdownCtx); err != nil {
			logging.Error(logger, "backfill shutdown error", err)
		}
	}
	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logging.Error(logger, "REST API server shutdown error", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logging.Error(logger, "WebSocket server shutdown error", err)
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		logging.Error(logger, "telemetry shutdown error", err)
	}

	logger.Info("athena stopped")
}

// connectRedis retries while Redis starts alongside the service.
func connectRedis(logger *slog.Logger, url string) *cache.RedisCache {
	const (
		maxRetries = 30
		retryDelay = 2 * time.Second
	)

	logger.Info("connecting to redis")
	for i := 0; ; i++ {
		rc, err := cache.NewRedisCache(url)
		if err == nil {
			logger.Info("✓ connected to redis")
			return rc
		}
		if i >= maxRetries-1 {
			fatal(logger, "failed to connect to redis", err, "attempts", maxRetries)
		}
		logger.Warn("redis connection attempt failed",
			"attempt", i+1, "max_attempts", maxRetries, logging.FieldError, err, "retry_in", retryDelay)
		time.Sleep(retryDelay)
	}
}

func fatal(logger *slog.Logger, msg string, err error, args ...any) {
	logging.Error(logger, msg, err, args...)
	os.Exit(1)
}
