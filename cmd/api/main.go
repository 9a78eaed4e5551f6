package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/adapters/cache"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/adapters/database"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/adapters/events"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/adapters/memory"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/adapters/storage"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/api/handlers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/api/middleware"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/api/routes"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/application/services"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/providers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/repositories"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/clients/analyzers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/clients/minio"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/extraction"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
	"github.com/zatekoja/Medicalreportanalysis/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(os.Stdout, cfg.OTEL.ServiceName, cfg.Server.Environment, cfg.Server.LogLevel)
	logger := observability.GetLogger()

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Initialize Redis client; the service runs without it
	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, using in-process cache-less mode")
		eventBus = events.NewLocalEventBus()
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient, "mra:")
		eventBus = events.NewRedisEventBus(redisClient)
		logger.Info().Msg("redis client initialized")
	}

	// Report store
	var reportRepo repositories.ReportRepository
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn().Msg("using in-memory report store, reports are lost on restart")
		reportRepo = memory.NewReportStore()
	default:
		pgClient, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
		}
		defer pgClient.Close()

		if err := database.Migrate(ctx, pgClient); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply migrations")
		}

		reportRepo = database.NewReportAdapter(pgClient, metrics)
		if cacheProvider != nil {
			reportRepo = database.NewCachedReportAdapter(reportRepo, cacheProvider, metrics)
			logger.Info().Msg("report adapter wrapped with caching layer")
		}
	}

	// Document storage
	var documents providers.DocumentStore
	switch cfg.Storage.Driver {
	case "minio":
		minioClient, err := minio.NewClient(ctx, &cfg.Storage.Minio)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize MinIO client")
		}
		documents = storage.NewMinioDocumentStore(minioClient)
	default:
		local, err := storage.NewLocalDocumentStore(cfg.Storage.LocalDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize local document store")
		}
		documents = local
	}

	// Oracle chain
	chain, err := analyzers.NewChain(&cfg.Oracle)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure oracle providers")
	}
	defer chain.Close()

	// Services
	extractor := extraction.NewPDFTextExtractor(&cfg.Extraction, extraction.ExecRunner{})
	analysisService := services.NewAnalysisService(chain, cfg.Oracle.MaxInputChars)

	reportService := services.NewReportService(reportRepo, extractor, analysisService, documents)
	reportService.SetEventBus(eventBus)
	reportService.SetMetrics(metrics)

	reviewService := services.NewReviewService(reportRepo)
	reviewService.SetEventBus(eventBus)

	comparisonService := services.NewComparisonService(reportRepo, chain)

	// Handlers
	uploadLimiter := handlers.NewRateLimiter(cacheProvider, cfg.Upload.RateLimitPerHour, time.Hour)
	router := routes.NewRouter(
		handlers.NewReportHandler(reportService, uploadLimiter, cfg.Upload.MaxBytes),
		handlers.NewReviewHandler(reviewService),
		handlers.NewCompareHandler(comparisonService),
		handlers.NewSSEHandler(eventBus),
		middleware.AuthMiddleware(middleware.AuthConfig{
			SigningKey: []byte(cfg.Auth.JWTSecret),
			Issuer:     cfg.Auth.Issuer,
		}),
		cfg.Server.CORSOrigins,
		metrics,
	)

	// Create HTTP server; uploads wait on two oracle calls so writes get
	// the sum of both provider timeouts on top of the base budget.
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15*time.Second + cfg.Oracle.Primary.Timeout + cfg.Oracle.Fallback.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("server shutting down")

	// Close the event bus first so open SSE streams end
	if err := eventBus.Close(); err != nil {
		logger.Error().Err(err).Msg("error closing event bus")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}

	logger.Info().Msg("server stopped")
}
