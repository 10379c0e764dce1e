package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mybankaccount-ledger/internal/api"
	"github.com/mybankaccount-ledger/internal/api/service"
	"github.com/mybankaccount-ledger/internal/config"
	"github.com/mybankaccount-ledger/internal/data/mongo"
	"github.com/mybankaccount-ledger/internal/data/postgres"
	"github.com/mybankaccount-ledger/internal/engine"
	"github.com/mybankaccount-ledger/internal/logger"
	"github.com/mybankaccount-ledger/internal/payments"
	"github.com/mybankaccount-ledger/internal/platform/persistence"
	"github.com/mybankaccount-ledger/internal/query"
	"github.com/mybankaccount-ledger/internal/refgen"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ledger_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger API",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	movementRepo := postgres.NewMovementRepository(log, postgresDB)
	paymentRepo := postgres.NewPaymentRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	archiveRepo := mongo.NewArchiveRepository(log, mongoDB.Database())

	// Initialize services
	refs := refgen.NewGenerator(10)
	movementEngine := engine.NewEngine(postgresDB, accountRepo, movementRepo, outboxRepo, refs, log)
	paymentOrchestrator := payments.NewOrchestrator(&cfg.Payments, accountRepo, paymentRepo, movementEngine, refs, log)
	queryService := query.NewService(accountRepo, movementRepo, archiveRepo, log)
	accountService := service.NewAccountService(accountRepo, refs, log)

	// Initialize REST server
	server := api.NewServer(log, cfg, accountService, movementEngine, paymentOrchestrator, queryService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("Ledger API shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Ledger API shutdown completed with errors")
	} else {
		log.Info("Ledger API shutdown completed successfully")
	}
}
