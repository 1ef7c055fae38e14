package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"LetterFlow/internal/api"
	"LetterFlow/internal/broker"
	"LetterFlow/internal/config"
	"LetterFlow/internal/ledger"
	"LetterFlow/internal/mail"
	"LetterFlow/internal/metrics"
	"LetterFlow/internal/processor"
	"LetterFlow/internal/queue"
	"LetterFlow/internal/subscribers"
	"LetterFlow/internal/worker"
)

func main() {

	// ------------------------------------------------
	// Logger
	// ------------------------------------------------
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// ------------------------------------------------
	// Config
	// ------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ------------------------------------------------
	// Root Context + Shutdown
	// ------------------------------------------------
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	// ------------------------------------------------
	// Stores: Postgres (ledger + directory), Redis (broker)
	// ------------------------------------------------
	ledgerStore, err := ledger.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer ledgerStore.Close()

	directory := subscribers.New(ledgerStore.Pool)

	redisBroker, err := broker.Connect(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	defer redisBroker.Close()

	// ------------------------------------------------
	// Metrics
	// ------------------------------------------------
	metrics.Init()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}

	go func() {
		logger.Info("metrics server started", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Dispatch Queue
	// ------------------------------------------------
	dispatchQueue := queue.New(redisBroker, logger)

	go worker.PollQueueStats(ctx, dispatchQueue, time.Duration(cfg.StatsPollInterval)*time.Second, logger)

	// ------------------------------------------------
	// Mail Transport
	// ------------------------------------------------
	var transport mail.Transport
	switch cfg.MailProvider {
	case "resend":
		transport = mail.NewResend(cfg.ResendAPIKey)
	default:
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)
		transport = mail.NewSMTP(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUser,
			cfg.SMTPPassword,
			limiter,
			cfg.SMTPRetryAttempts,
		)
	}

	// ------------------------------------------------
	// Dispatch Worker
	// ------------------------------------------------
	registry := processor.NewRegistry(
		processor.NewIssueProcessor(transport, ledgerStore, directory, cfg.FromEmail, logger),
	)

	dispatchWorker := worker.New(dispatchQueue, registry, logger)
	dispatchWorker.Start(ctx)

	// ------------------------------------------------
	// HTTP API Server
	// ------------------------------------------------
	apiHandler := &api.Handler{
		Queue:     dispatchQueue,
		Ledger:    ledgerStore,
		Directory: directory,
		Log:       logger,
	}

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /issues/publish", apiHandler.PublishIssue)
	apiMux.HandleFunc("GET /dispatch/stats", apiHandler.QueueStats)

	apiServer := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: apiMux,
	}

	go func() {
		logger.Info("api server started", zap.String("port", cfg.APIPort))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("api server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Wait for shutdown
	// ------------------------------------------------
	<-ctx.Done()

	logger.Info("shutting down services...")

	// Let the current job finish before the servers go away.
	dispatchWorker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", zap.Error(err))
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}

	logger.Info("application shutdown complete")
}
