package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stocklink/stocklink/internal/batch"
	"github.com/stocklink/stocklink/internal/config"
	"github.com/stocklink/stocklink/internal/database"
	"github.com/stocklink/stocklink/internal/database/postgres"
	"github.com/stocklink/stocklink/internal/handler"
	"github.com/stocklink/stocklink/internal/logger"
	"github.com/stocklink/stocklink/internal/mapping"
	"github.com/stocklink/stocklink/internal/precache"
	"github.com/stocklink/stocklink/internal/remote"
	"github.com/stocklink/stocklink/internal/scheduler"
	"github.com/stocklink/stocklink/internal/server"
	"github.com/stocklink/stocklink/internal/syncer"
	"github.com/stocklink/stocklink/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Init(logger.NewConfig(
		cfg.LogLevel,
		cfg.LogFormat,
		cfg.ServiceName,
		cfg.Version,
		cfg.Environment,
		cfg.Environment != "prod",
	))
	log := slog.Default()

	handler.InitValidator()

	connString := cfg.GetDBConnString()
	if err := database.Migrate(connString); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	dbPool, err := database.NewPool(connString, database.DefaultMaxConnections, 5*time.Minute, 30*time.Minute)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// Repositories
	accounts := postgres.NewAccountRepository(dbPool)
	settings := postgres.NewSettingsRepository(dbPool)
	mappings := postgres.NewMappingRepository(dbPool)
	queue := postgres.NewQueueRepository(dbPool)

	// Remote API client with a shared per-account rate tracker
	tracker := remote.NewRateTracker()
	api := remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteTimeout, tracker)

	// Sync engine
	resolver := mapping.NewResolver(mappings, api)
	cache := precache.NewService(mappings, api, cfg.PageSize, cfg.MetadataCacheTTL)
	orch := syncer.NewOrchestrator(mappings, resolver, cache, api)
	loader := batch.NewLoader(api, cfg.PageSize)
	batchSvc := batch.NewService(loader, queue, accounts, settings, orch, cache,
		cfg.ChunkSize, cfg.ChunkMaxBytes, cfg.FanoutDelay)

	// Queue executors
	executor := worker.NewExecutor(queue, accounts, settings, cache, orch, api, 0)
	pool := worker.NewPool(queue, executor, cfg.Workers, cfg.QueuePollPeriod)
	pool.Start()

	// Background maintenance
	sched := scheduler.New()
	sched.Schedule("queue-retention", cfg.RetentionPeriod, scheduler.QueueRetentionTask(queue, cfg.RetentionWindow))
	sched.Schedule("queue-depth", 30*time.Second, scheduler.QueueDepthTask(queue))

	// HTTP API
	settingsHandlers := handler.NewSettingsHandlers(settings, accounts)
	syncHandlers := handler.NewSyncHandlers(batchSvc, accounts, settings, queue)
	srv := server.NewServer(cfg.Port, cfg.APIKey, cfg.TrustedProxies, dbPool, settingsHandlers, syncHandlers)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		log.Error("server stopped unexpectedly", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		log.Error("failed to stop server gracefully", "error", err)
	}
	sched.Stop()
	pool.Stop()

	log.Info("shutdown complete")
}
