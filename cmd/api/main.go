package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wingufactory/moodboard/backend/internal/adapters/cache"
	"github.com/wingufactory/moodboard/backend/internal/adapters/database"
	"github.com/wingufactory/moodboard/backend/internal/adapters/events"
	"github.com/wingufactory/moodboard/backend/internal/adapters/search"
	"github.com/wingufactory/moodboard/backend/internal/api/handlers"
	"github.com/wingufactory/moodboard/backend/internal/api/middleware"
	"github.com/wingufactory/moodboard/backend/internal/api/routes"
	"github.com/wingufactory/moodboard/backend/internal/application/services"
	"github.com/wingufactory/moodboard/backend/internal/domain/providers"
	"github.com/wingufactory/moodboard/backend/internal/infrastructure/clients/postgres"
	"github.com/wingufactory/moodboard/backend/internal/infrastructure/clients/redis"
	"github.com/wingufactory/moodboard/backend/internal/infrastructure/clients/typesense"
	"github.com/wingufactory/moodboard/backend/internal/infrastructure/observability"
	"github.com/wingufactory/moodboard/backend/pkg/config"
	"github.com/wingufactory/moodboard/backend/pkg/secrets"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Secrets from Vault are exported as env vars before config is read
	vaultResult, err := secrets.ApplyVaultSecrets(ctx, secrets.LoadVaultConfigFromEnv(""))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load secrets from Vault")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.App.Name, cfg.App.Env)
	if vaultResult.Enabled {
		log.Info().Str("path", vaultResult.Path).Int("loaded", vaultResult.Loaded).Int("skipped", vaultResult.Skipped).Msg("Vault secrets applied")
	}

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, observability.SetupOptions{
			ServiceName:    cfg.OTEL.ServiceName,
			ServiceVersion: cfg.OTEL.ServiceVersion,
			Endpoint:       cfg.OTEL.Endpoint,
			ExportLogs:     cfg.OTEL.ExportLogs,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Storage is required
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	if cfg.Database.RunMigrations {
		if err := pgClient.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply database migrations")
		}
	}

	readiness := map[string]handlers.Pinger{"postgres": pgClient}

	// Redis backs the shared cache and cross-instance events; without it both stay local
	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, continuing with local cache and event bus")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient)
			eventBus = events.NewRedisEventBus(redisClient)
			readiness["redis"] = redisClient
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
		}
	}
	// Without Redis no other process can see events, so this server streams them itself
	var sseHandler *handlers.SSEHandler
	if eventBus == nil {
		eventBus = events.NewMemoryEventBus()
		sseHandler = handlers.NewSSEHandler(eventBus)
	}

	serviceOpts := []services.FeedbackServiceOption{services.WithEventBus(eventBus)}

	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable, feedback search disabled")
		} else {
			if err := tsClient.InitSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to init Typesense schema")
			}
			serviceOpts = append(serviceOpts, services.WithSearch(search.NewFeedbackSearchAdapter(tsClient)))
			readiness["typesense"] = tsClient
		}
	}

	feedbackService := services.NewFeedbackService(database.NewFeedbackAdapter(pgClient, metrics), serviceOpts...)

	feedbackHandler := handlers.NewFeedbackHandler(
		feedbackService,
		handlers.NewSubmissionGuard(cacheProvider, cfg.Feedback),
	)
	healthHandler := handlers.NewHealthHandler(readiness)

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, metrics)
	}

	router := routes.NewRouter(feedbackHandler, healthHandler, sseHandler, cacheMiddleware, metrics, cfg.App.AllowedOrigins)

	writeTimeout := 15 * time.Second
	if sseHandler != nil {
		writeTimeout = 0 // streams stay open
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down")

	// Closing the bus first ends open streams so Shutdown does not wait on them
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Server stopped")
}
