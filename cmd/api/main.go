package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payuni-gateway/config"
	"payuni-gateway/internal/adapter/catalog"
	httpHandler "payuni-gateway/internal/adapter/http/handler"
	"payuni-gateway/internal/adapter/http/middleware"
	"payuni-gateway/internal/adapter/gateway/payuni"
	pgStorage "payuni-gateway/internal/adapter/storage/postgres"
	redisStorage "payuni-gateway/internal/adapter/storage/redis"
	"payuni-gateway/internal/core/ports"
	"payuni-gateway/internal/metrics"
	"payuni-gateway/internal/service"
	"payuni-gateway/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	// .env is a development convenience; in production the file is absent
	// and config.Load falls back to the environment and defaults.
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "no .env file loaded: %v\n", err)
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty, cfg.Log.File)

	warnings, err := config.Preflight(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("preflight failed")
	}
	for _, w := range warnings {
		log.Warn().Msg(w)
	}

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("starting payuni-gateway")

	ctx := context.Background()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Repositories
	orderRepo := pgStorage.NewOrderRepo(pool)
	userRepo := pgStorage.NewUserRepo(pool)
	entRepo := pgStorage.NewEntitlementRepo(pool)
	periodRepo := pgStorage.NewPeriodPaymentRepo(pool)
	compRepo := pgStorage.NewCompensationRepo(pool)

	// Product catalog (C7 lookup)
	productCatalog, err := catalog.LoadStaticCatalog(cfg.Catalog.ProductsFile)
	if err != nil {
		log.Warn().Err(err).Str("file", cfg.Catalog.ProductsFile).Msg("product catalog not found, starting with an empty catalog")
		productCatalog = catalog.NewInMemoryCatalog(nil)
	}

	// Redis-backed stores
	resultTokenCache := redisStorage.NewResultTokenCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Prometheus metrics
	reg := metrics.New(nil)
	middleware.SetMetrics(reg)

	// Core services
	sealSvc, err := service.NewSealService(cfg.PAYUNi.HashKey, cfg.PAYUNi.HashIV)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize seal service")
	}
	sessions := service.NewSessionService(cfg.Session.Secret, cfg.Session.Expiry, "payuni-gateway")

	gateway := payuni.NewAdapter(payuni.Config{
		MerchantID: cfg.PAYUNi.MerchantID,
		APIBase:    cfg.PAYUNi.APIBase,
		NotifyURL:  cfg.PAYUNi.NotifyURL,
	}, sealSvc, log).WithMetrics(reg)

	orderSvc := service.NewOrderService(orderRepo, productCatalog).WithMetrics(reg)
	paymentProcessor := service.NewPaymentProcessor(orderRepo, entRepo, periodRepo, compRepo, productCatalog, userRepo, log).WithMetrics(reg)
	nonceStore := redisStorage.NewNonceStore(rdb)
	webhookProcessor := service.NewWebhookProcessor(gateway, paymentProcessor, log).WithMetrics(reg).WithNonceStore(nonceStore)
	subSvc := service.NewSubscriptionService(entRepo, gateway)

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Sessions:       sessions,
		OrderSvc:       orderSvc,
		Gateway:        gateway,
		WebhookSvc:     webhookProcessor,
		SubSvc:         subSvc,
		ResultTokens:   resultTokenCache,
		ResultURL:      cfg.Server.ResultPageURL,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
