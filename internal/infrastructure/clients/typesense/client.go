package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/wingufactory/moodboard/backend/pkg/config"
	"github.com/wingufactory/moodboard/backend/pkg/retry"
)

const (
	FeedbackCollection = "feedback"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := newTypesenseClient(cfg)

	err := retry.DoWithLog(
		context.Background(),
		retry.DefaultConfig(),
		"Typesense",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := client.Health(ctx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("Typesense connection attempt failed")
		},
	)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("Successfully connected to Typesense")
	return &Client{client: client}, nil
}

// NewClientWithoutHealthCheck builds a client without waiting for the server
func NewClientWithoutHealthCheck(cfg *config.TypesenseConfig) *Client {
	return &Client{client: newTypesenseClient(cfg)}
}

func newTypesenseClient(cfg *config.TypesenseConfig) *typesense.Client {
	return typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// Ping checks that the Typesense server reports healthy
func (c *Client) Ping(ctx context.Context) error {
	ok, err := c.client.Health(ctx, 2*time.Second)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("typesense reported unhealthy")
	}
	return nil
}

// FeedbackSchema describes the feedback collection
func FeedbackSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: FeedbackCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "user_name", Type: "string"},
			{Name: "comments", Type: "string"},
			{Name: "rating", Type: "int32", Facet: pointer.True()},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}
}

// InitSchema ensures the feedback collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	for _, col := range collections {
		if col.Name == FeedbackCollection {
			log.Debug().Str("collection", FeedbackCollection).Msg("Typesense collection already exists")
			return nil
		}
	}

	if _, err := c.client.Collections().Create(ctx, FeedbackSchema()); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Info().Str("collection", FeedbackCollection).Msg("Created Typesense collection")
	return nil
}

// DropSchema deletes the feedback collection if present
func (c *Client) DropSchema(ctx context.Context) error {
	if _, err := c.client.Collection(FeedbackCollection).Delete(ctx); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	log.Info().Str("collection", FeedbackCollection).Msg("Dropped Typesense collection")
	return nil
}
