package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wingufactory/moodboard/backend/internal/adapters/database"
	"github.com/wingufactory/moodboard/backend/internal/adapters/search"
	"github.com/wingufactory/moodboard/backend/internal/application/services"
	"github.com/wingufactory/moodboard/backend/internal/domain/entities"
	"github.com/wingufactory/moodboard/backend/internal/infrastructure/clients/postgres"
	"github.com/wingufactory/moodboard/backend/internal/infrastructure/clients/typesense"
	"github.com/wingufactory/moodboard/backend/internal/infrastructure/observability"
	"github.com/wingufactory/moodboard/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	observability.InitLogger("moodboard-seed", cfg.App.Env)

	ctx := context.Background()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer pgClient.Close()

	if err := pgClient.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating feedback before seeding")
		if _, err := pgClient.DB().ExecContext(ctx, `TRUNCATE TABLE feedback`); err != nil {
			log.Fatal().Err(err).Msg("Failed to reset tables")
		}
	}

	var opts []services.FeedbackServiceOption
	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable, seeding without search index")
		} else if err := tsClient.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to init Typesense schema")
		} else {
			opts = append(opts, services.WithSearch(search.NewFeedbackSearchAdapter(tsClient)))
		}
	}

	service := services.NewFeedbackService(database.NewFeedbackAdapter(pgClient, nil), opts...)

	base := time.Now().UTC().Add(-time.Hour)
	seed := []*entities.Feedback{
		{UserName: "Alice", Comments: "Super !", Rating: 5, CreatedAt: base},
		{UserName: "Bob", Comments: "Great !", Rating: 4, CreatedAt: base.Add(time.Minute)},
	}

	for _, feedback := range seed {
		if err := service.Create(ctx, feedback); err != nil {
			log.Error().Err(err).Str("user_name", feedback.UserName).Msg("Failed to create feedback")
			continue
		}
		log.Info().Str("id", feedback.ID).Str("user_name", feedback.UserName).Msg("Seeded feedback")
	}

	log.Info().Int("count", len(seed)).Msg("Seeding complete")
}
