package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledger-core/config"
	httpHandler "ledger-core/internal/adapter/http/handler"
	"ledger-core/internal/adapter/rates"
	pgStorage "ledger-core/internal/adapter/storage/postgres"
	redisStorage "ledger-core/internal/adapter/storage/redis"
	"ledger-core/internal/core/ports"
	"ledger-core/internal/service"
	"ledger-core/pkg/logger"

	"github.com/google/uuid"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Ledger Core")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	entryRepo := pgStorage.NewEntryRepo(pool)
	balanceRepo := pgStorage.NewBalanceRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyStore := redisStorage.NewIdempotencyStore(rdb)

	// Initialize rate source and FX gain/loss routing
	rateSource, err := rates.NewStaticSource(cfg.FX.Rates)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load FX rate table")
	}
	gainLoss := make(map[string]uuid.UUID, len(cfg.FX.GainLossAccounts))
	for currency, raw := range cfg.FX.GainLossAccounts {
		id, err := uuid.Parse(raw)
		if err != nil {
			log.Fatal().Str("currency", currency).Str("value", raw).Msg("FX gain/loss account is not a valid uuid")
		}
		gainLoss[currency] = id
	}

	// Initialize business services
	accountSvc := service.NewAccountService(accountRepo, balanceRepo, auditRepo, transactor, log)
	balanceSvc := service.NewBalanceService(accountRepo, balanceRepo, entryRepo, log)
	ledgerSvc := service.NewLedgerService(
		accountRepo,
		entryRepo,
		balanceRepo,
		idempotencyRepo,
		auditRepo,
		idempotencyStore,
		transactor,
		service.LedgerOptions{
			InflightTTL:  cfg.Idempotency.InflightTTL,
			InflightWait: cfg.Idempotency.InflightWait,
			PollInterval: cfg.Idempotency.PollInterval,
			Retention:    cfg.Idempotency.Retention,
			MaxAttempts:  cfg.LockRetry.MaxAttempts,
			RetryBackoff: cfg.LockRetry.Backoff,
		},
		log,
	)
	conversionSvc := service.NewConversionService(rateSource, gainLoss, log)
	reconSvc := service.NewReconciliationService(entryRepo, service.ReconciliationOptions{
		AmountTolerance: cfg.Reconciliation.AmountToleranceMinor,
		DateTolerance:   cfg.Reconciliation.DateTolerance,
	}, log)
	auditSvc := service.NewAuditService(auditRepo, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AccountSvc:     accountSvc,
		BalanceSvc:     balanceSvc,
		LedgerSvc:      ledgerSvc,
		ConversionSvc:  conversionSvc,
		ReconSvc:       reconSvc,
		AuditSvc:       auditSvc,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
