package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payhula-webhooks/config"
	httpHandler "payhula-webhooks/internal/adapter/http/handler"
	pgStorage "payhula-webhooks/internal/adapter/storage/postgres"
	redisStorage "payhula-webhooks/internal/adapter/storage/redis"
	"payhula-webhooks/internal/core/ports"
	"payhula-webhooks/internal/service"
	"payhula-webhooks/pkg/logger"
)

const serviceTokenExpiry = time.Hour

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
		Msg("Starting Payhula webhook service")

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
	txRepo := pgStorage.NewTransactionRepo(pool)
	orderRepo := pgStorage.NewOrderRepo(pool)
	paymentRepo := pgStorage.NewPaymentRepo(pool)
	webhookRepo := pgStorage.NewWebhookRepo(pool)
	deliveryRepo := pgStorage.NewDeliveryRepo(pool)
	eventRepo := pgStorage.NewGatewayEventRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	processedMarker := redisStorage.NewProcessedMarker(rdb)

	// Initialize core services
	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.Auth.ServiceSecret, serviceTokenExpiry, cfg.Auth.Issuer)

	// Egress clients. The insecure one serves subscriptions that opted out
	// of certificate verification.
	httpClient := &http.Client{Timeout: cfg.Dispatch.DefaultTimeout}
	insecureClient := &http.Client{
		Timeout: cfg.Dispatch.DefaultTimeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		},
	}

	// Initialize business services
	enqueuer := service.NewEventEnqueuer(webhookRepo, deliveryRepo, cfg.Dispatch.MaxAttempts, log)
	ingestSvc := service.NewIngestService(
		txRepo,
		orderRepo,
		paymentRepo,
		eventRepo,
		processedMarker,
		enqueuer,
		transactor,
		log,
	)
	dispatchSvc := service.NewDispatchService(
		deliveryRepo,
		webhookRepo,
		sigSvc,
		httpClient,
		insecureClient,
		cfg.Dispatch,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Gateways may call from anywhere; lock the origin down only in release mode.
	corsOrigin := "*"
	if cfg.Server.Mode == "release" && cfg.CORS.AllowedOrigin != "" {
		corsOrigin = cfg.CORS.AllowedOrigin
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		IngestSvc:      ingestSvc,
		DispatchSvc:    dispatchSvc,
		TokenSvc:       tokenSvc,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		CORSOrigin:     corsOrigin,
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
