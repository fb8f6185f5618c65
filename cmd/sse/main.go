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
	"github.com/wingufactory/moodboard/backend/internal/adapters/events"
	"github.com/wingufactory/moodboard/backend/internal/api/handlers"
	"github.com/wingufactory/moodboard/backend/internal/api/routes"
	"github.com/wingufactory/moodboard/backend/internal/infrastructure/clients/redis"
	"github.com/wingufactory/moodboard/backend/internal/infrastructure/observability"
	"github.com/wingufactory/moodboard/backend/pkg/config"
	"github.com/wingufactory/moodboard/backend/pkg/secrets"
)

func main() {
	if _, err := secrets.ApplyVaultSecrets(context.Background(), secrets.LoadVaultConfigFromEnv("")); err != nil {
		log.Fatal().Err(err).Msg("Failed to load secrets from Vault")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.App.Name+"-sse", cfg.App.Env)
	log.Info().Msg("Starting SSE Server")

	// Redis is required: the stream only sees events published by API instances through it
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Redis client")
	}
	defer redisClient.Close()

	eventBus := events.NewRedisEventBus(redisClient)
	sseHandler := handlers.NewSSEHandler(eventBus)
	healthHandler := handlers.NewHealthHandler(map[string]handlers.Pinger{"redis": redisClient})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      routes.SetupStreamRoutes(sseHandler, healthHandler, cfg.App.AllowedOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streams stay open
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("SSE Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("SSE Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("SSE Server shutting down")

	// Closing the bus first ends open streams so Shutdown does not wait on them
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("SSE Server stopped")
}
