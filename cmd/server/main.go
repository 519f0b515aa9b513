package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/crosslister/internal/clients/marketplace"
	"github.com/aristath/crosslister/internal/config"
	"github.com/aristath/crosslister/internal/database"
	"github.com/aristath/crosslister/internal/domain"
	"github.com/aristath/crosslister/internal/events"
	"github.com/aristath/crosslister/internal/modules/catalog"
	"github.com/aristath/crosslister/internal/modules/execution"
	"github.com/aristath/crosslister/internal/modules/listing"
	"github.com/aristath/crosslister/internal/modules/strategy"
	"github.com/aristath/crosslister/internal/scheduler"
	"github.com/aristath/crosslister/internal/server"
	"github.com/aristath/crosslister/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		errLog := logger.New(logger.Config{Level: "error"})
		errLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting crosslister")

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logDB, err := database.NewLogDB(cfg.LogDatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize log database")
	}
	defer logDB.Close()

	eventManager := events.NewManager(log)

	// Repositories
	productRepo := catalog.NewProductRepository(db.Conn(), log)
	accountRepo := catalog.NewAccountRepository(db.Conn(), log)
	listingRepo := listing.NewRepository(db.Conn(), log)
	priceRepo := listing.NewPriceRepository(db.Conn(), log)
	stockLogRepo := listing.NewStockLogRepository(db.Conn(), log)
	inventoryRepo := listing.NewInventorySyncRepository(db.Conn(), log)
	ruleRepo := strategy.NewRuleRepository(db.Conn(), log)
	historyRepo := strategy.NewHistoryRepository(db.Conn(), log)
	decisionRepo := strategy.NewDecisionRepository(db.Conn(), log)
	queueRepo := execution.NewQueueRepository(db.Conn(), log)
	execLogRepo := execution.NewLogRepository(logDB.Conn(), log)

	// Marketplace clients
	registry := buildClientRegistry(cfg, log)

	// Strategy engine
	strategyCfg := strategy.Config{
		MinStockQuantity: cfg.MinStockQuantity,
		MinPriorityScore: cfg.MinPriorityScore,
		HistoryWindow:    time.Duration(cfg.HistoryWindowDays) * 24 * time.Hour,
	}
	strategyService := strategy.NewService(strategyCfg,
		productRepo, accountRepo, listingRepo, ruleRepo, historyRepo,
		decisionRepo, eventManager, log)

	// Execution engine
	executorCfg := execution.Config{
		TriggerStatus:    domain.ExecutionStatus(cfg.TriggerStatus),
		MinStockQuantity: cfg.MinStockQuantity,
		BaseRetryMinutes: cfg.BaseRetryMinutes,
	}
	executor := execution.NewExecutor(executorCfg,
		productRepo, decisionRepo, listingRepo, priceRepo,
		stockLogRepo, inventoryRepo, queueRepo, execLogRepo,
		registry, eventManager, log)

	// Retry queue processor
	retryCfg := execution.RetryConfig{
		BatchLimit:       cfg.RetryBatchLimit,
		MaxRetries:       cfg.MaxRetries,
		BaseRetryMinutes: cfg.BaseRetryMinutes,
		StaleWindow:      time.Duration(cfg.StaleProcessingMin) * time.Minute,
	}
	retryProcessor := execution.NewRetryProcessor(retryCfg,
		executor, productRepo, queueRepo, execLogRepo, eventManager, log)

	// Scheduler
	sched := scheduler.New(log)
	if err := registerJobs(sched, cfg, executor, retryProcessor, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:     cfg.Port,
		Log:      log,
		DevMode:  cfg.DevMode,
		Strategy: strategyService,
		Executor: executor,
		Retry:    retryProcessor,
		Queue:    queueRepo,
		Logs:     execLogRepo,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// buildClientRegistry wires one marketplace client per platform.
// Dev mode uses stubs so no real marketplace is touched.
func buildClientRegistry(cfg *config.Config, log zerolog.Logger) *marketplace.Registry {
	registry := marketplace.NewRegistry()

	if cfg.DevMode {
		for _, p := range domain.AllPlatforms() {
			registry.Register(marketplace.NewStubClient(p, log))
		}
		return registry
	}

	registry.Register(marketplace.NewEbayClient(cfg.EbayServiceURL, cfg.Credentials.Ebay, log))
	registry.Register(marketplace.NewAmazonClient(cfg.AmazonServiceURL, domain.PlatformAmazonUS, cfg.Credentials.Amazon, log))
	registry.Register(marketplace.NewAmazonClient(cfg.AmazonServiceURL, domain.PlatformAmazonJP, cfg.Credentials.Amazon, log))
	registry.Register(marketplace.NewAmazonClient(cfg.AmazonServiceURL, domain.PlatformAmazonAU, cfg.Credentials.Amazon, log))
	registry.Register(marketplace.NewCoupangClient(cfg.CoupangServiceURL, cfg.Credentials.Coupang, log))

	return registry
}

func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	executor *execution.Executor,
	retryProcessor *execution.RetryProcessor,
	log zerolog.Logger,
) error {
	if err := sched.AddJob(cfg.ExecutionCycleSchedule, scheduler.NewExecutionCycleJob(executor, log)); err != nil {
		return err
	}
	return sched.AddJob(cfg.RetrySweepSchedule, scheduler.NewRetrySweepJob(retryProcessor, log))
}
