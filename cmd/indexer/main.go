package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wingufactory/moodboard/backend/internal/adapters/database"
	"github.com/wingufactory/moodboard/backend/internal/adapters/search"
	"github.com/wingufactory/moodboard/backend/internal/application/services"
	"github.com/wingufactory/moodboard/backend/internal/infrastructure/clients/postgres"
	"github.com/wingufactory/moodboard/backend/internal/infrastructure/clients/typesense"
	"github.com/wingufactory/moodboard/backend/internal/infrastructure/observability"
	"github.com/wingufactory/moodboard/backend/pkg/config"
	"github.com/wingufactory/moodboard/backend/pkg/secrets"
)

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete existing Typesense collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	observability.InitLogger("moodboard-indexer", os.Getenv("APP_ENV"))

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		parsed, err := time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("Invalid interval")
		}
		if parsed <= 0 {
			log.Fatal().Str("interval", intervalValue).Msg("Interval must be greater than zero")
		}
		interval = parsed
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := secrets.ApplyVaultSecrets(ctx, secrets.LoadVaultConfigFromEnv("")); err != nil {
		log.Fatal().Err(err).Msg("Failed to load secrets from Vault")
	}

	for {
		if err := indexOnce(ctx, reset); err != nil {
			log.Error().Err(err).Msg("Reindex failed")
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Info().Dur("next_run_in", interval).Msg("Reindex complete")

		select {
		case <-ctx.Done():
			log.Info().Msg("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, reset bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Info().Str("collection", typesense.FeedbackCollection).Msg("Deleting collection before reindex")
		if err := tsClient.DropSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to delete collection")
		}
	}

	if err := tsClient.InitSchema(ctx); err != nil {
		return err
	}

	service := services.NewFeedbackService(database.NewFeedbackAdapter(pgClient, nil))
	items, err := service.GetAllFeedback(ctx)
	if err != nil {
		return err
	}

	index := search.NewFeedbackSearchAdapter(tsClient)
	indexed := 0
	for _, item := range items {
		if item == nil {
			continue
		}
		if err := index.Index(ctx, item); err != nil {
			log.Warn().Err(err).Str("feedback_id", item.ID).Msg("Failed to index feedback")
			continue
		}
		indexed++
	}

	log.Info().Int("indexed", indexed).Int("total", len(items)).Msg("Indexing complete")
	return nil
}
