package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stokvel-ledger/config"
	httpHandler "stokvel-ledger/internal/adapter/http/handler"
	pgStorage "stokvel-ledger/internal/adapter/storage/postgres"
	redisStorage "stokvel-ledger/internal/adapter/storage/redis"
	"stokvel-ledger/internal/core/ports"
	"stokvel-ledger/internal/service"
	"stokvel-ledger/pkg/logger"
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
		Msg("Starting Stokvel Ledger")

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
	walletRepo := pgStorage.NewWalletRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	userRepo := pgStorage.NewUserRepo(pool)
	groupRepo := pgStorage.NewGroupRepo(pool)
	contribRepo := pgStorage.NewContributionRepo(pool)
	claimRepo := pgStorage.NewClaimRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	eventPublisher := redisStorage.NewEventPublisher(rdb)

	// Initialize business services
	fundingSource := service.NewSimulatedFundingSource(log)
	ledgerSvc := service.NewLedgerService(
		walletRepo,
		txRepo,
		userRepo,
		groupRepo,
		contribRepo,
		idempotencyRepo,
		idempotencyCache,
		fundingSource,
		eventPublisher,
		transactor,
		cfg.Limits,
		log,
	)
	fraudScorer := service.NewFraudScorer(cfg.Fraud, log)
	claimSvc := service.NewClaimService(
		claimRepo,
		userRepo,
		fraudScorer,
		eventPublisher,
		cfg.Fraud,
		cfg.Limits.Currency,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		ClaimSvc:       claimSvc,
		Currency:       cfg.Limits.Currency,
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
