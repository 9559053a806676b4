package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"claimdesk/internal/amqp"
	"claimdesk/internal/config"
	apphttp "claimdesk/internal/http"
	"claimdesk/internal/memstore"
	"claimdesk/internal/report"
	"claimdesk/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var (
		ledger    report.LedgerReader
		directory report.DirectoryReader
		activity  report.ActivityReader
		storeSink report.ActivitySink
		ready     func(context.Context) error
	)

	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		ledger, directory, activity, storeSink = repo, repo, repo, repo
		ready = repo.Ping
		logger.Info("Initialized sqlite backend", "path", cfg.SQLiteDBPath)
	default:
		store := memstore.New()
		ledger, directory, activity, storeSink = store, store, store, store
		logger.Info("Initialized memory backend", "backend", cfg.DataBackend)
	}

	// With a broker configured, activity records flow through AMQP and the
	// audit worker persists them. Without one they go straight to the store.
	sink := storeSink
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		sink = amqp.NewSink(amqpClient)
		logger.Info("Activity sink publishing to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - recording activity directly to the store")
	}

	gen := report.NewGenerator(ledger, directory, activity, sink, cfg.Location(), nil)

	srv := apphttp.NewServer(":"+cfg.Port, gen, apphttp.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		QueryTimeout:   cfg.QueryTimeout,
		Ready:          ready,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting claimdesk server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", cfg.ReportTimezone)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
