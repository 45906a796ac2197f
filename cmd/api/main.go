package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webhook-tester/config"
	httpHandler "webhook-tester/internal/adapter/http/handler"
	pgStorage "webhook-tester/internal/adapter/storage/postgres"
	redisStorage "webhook-tester/internal/adapter/storage/redis"
	"webhook-tester/internal/core/ports"
	"webhook-tester/internal/service"
	"webhook-tester/internal/stream"
	"webhook-tester/pkg/logger"
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
		Msg("Starting Webhook Tester")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	if err := pgStorage.Bootstrap(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap schema")
	}

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	endpointRepo := pgStorage.NewEndpointRepo(pool)
	requestRepo := pgStorage.NewRequestRepo(pool)

	// Initialize services
	endpointSvc := service.NewEndpointService(endpointRepo, cfg.Capture.EndpointTTL, log)
	captureSvc := service.NewCaptureService(requestRepo, log)
	requestSvc := service.NewRequestService(requestRepo)

	// Stream hub for live capture notifications
	hub := stream.NewHub(cfg.Stream.QueueSize)
	defer hub.Close()

	// Background TTL reaper
	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	reaper := service.NewReaper(
		endpointRepo,
		requestRepo,
		cfg.Capture.RequestTTL,
		cfg.Reaper.Interval,
		cfg.Reaper.BatchSize,
		log,
	)
	go reaper.Run(reaperCtx)

	// Initialize rate limit store
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		EndpointSvc:     endpointSvc,
		CaptureSvc:      captureSvc,
		RequestSvc:      requestSvc,
		Hub:             hub,
		RateLimitStore:  rateLimitStore,
		HealthCheckers:  []ports.HealthChecker{pgHealth, redisHealth},
		PublicBaseURL:   cfg.Server.PublicBaseURL,
		MaxBodyBytes:    cfg.Capture.MaxBodyBytes,
		StreamHeartbeat: cfg.Stream.Heartbeat,
		Logger:          log,
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

	stopReaper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
