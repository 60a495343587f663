/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the banking engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, BANK_* variables), then parse flags
  2. Build the zap logger
  3. Open the SQLite store (migrations run on open)
  4. Build banking.Service and the HTTP handler
  5. Start the outbox dispatcher and the reconciliation scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS (override environment):
  -port       HTTP server port (BANK_HTTP_PORT, default: 8080)
  -db         SQLite database path (BANK_DB_PATH, default: bank.db)
              Use ":memory:" for an in-memory database
  -log-level  debug, info, warn, error (BANK_LOG_LEVEL, default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and the dispatcher (final outbox drain)
  4. Close the Kafka writer and the database
  5. Exit

EXAMPLES:
  ./server -db="./data/bank.db"
  BANK_KAFKA_BROKERS=localhost:9092 ./server -log-level=debug

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/bank-engine/api"
	"github.com/warp/bank-engine/banking"
	"github.com/warp/bank-engine/config"
	"github.com/warp/bank-engine/outbox"
	"github.com/warp/bank-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags
	port := flag.Int("port", cfg.HTTPPort, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.Parse()

	logger, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.String("path", *dbPath), zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Error closing database", zap.Error(err))
		}
	}()

	retry := banking.DefaultRetryPolicy()
	retry.MaxRetries = cfg.MaxRetries
	retry.BaseDelay = cfg.RetryBaseDelay

	svc := banking.NewService(store, banking.Options{
		LockTimeout: cfg.LockTimeout,
		Retry:       retry,
	}, logger)

	// Outbox
	var publisher outbox.Publisher = outbox.LogPublisher{Logger: logger.Named("ledger-events")}
	if cfg.KafkaEnabled() {
		publisher = outbox.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		logger.Info("Publishing ledger events to Kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic))
	}
	defer publisher.Close()

	dispatcher := outbox.NewDispatcher(store, publisher, logger)
	dispatcher.PollInterval = cfg.OutboxPollInterval
	dispatcher.BatchSize = cfg.OutboxBatchSize
	dispatcher.Start()

	scheduler := api.NewReconciliationScheduler(svc, logger)
	scheduler.CheckInterval = cfg.ReconcileInterval
	scheduler.Start()

	// Create router
	handler := api.NewHandler(svc, store, logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.Int("port", *port), zap.String("db", *dbPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	scheduler.Stop()
	dispatcher.Stop()
	if _, err := dispatcher.DispatchOnce(ctx); err != nil {
		logger.Warn("Final outbox drain failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = lvl
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	return zapConfig.Build()
}
