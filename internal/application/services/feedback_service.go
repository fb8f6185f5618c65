package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wingufactory/moodboard/backend/internal/domain/entities"
	"github.com/wingufactory/moodboard/backend/internal/domain/providers"
	"github.com/wingufactory/moodboard/backend/internal/domain/repositories"
	"github.com/wingufactory/moodboard/backend/internal/infrastructure/observability"
	apperrors "github.com/wingufactory/moodboard/backend/pkg/errors"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// FeedbackService exposes the feedback collection to transports.
type FeedbackService struct {
	repo     repositories.FeedbackRepository
	eventBus providers.EventBus
	search   repositories.FeedbackSearchRepository
}

// FeedbackServiceOption configures optional collaborators of FeedbackService.
type FeedbackServiceOption func(*FeedbackService)

// WithEventBus publishes a feedback.created event after each successful Create.
func WithEventBus(bus providers.EventBus) FeedbackServiceOption {
	return func(s *FeedbackService) {
		s.eventBus = bus
	}
}

// WithSearch indexes new feedback and enables Search.
func WithSearch(search repositories.FeedbackSearchRepository) FeedbackServiceOption {
	return func(s *FeedbackService) {
		s.search = search
	}
}

// NewFeedbackService creates a new feedback service.
func NewFeedbackService(repo repositories.FeedbackRepository, opts ...FeedbackServiceOption) *FeedbackService {
	s := &FeedbackService{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAllFeedback returns every stored feedback record exactly as the
// repository produced it. Repository errors are returned unchanged.
func (s *FeedbackService) GetAllFeedback(ctx context.Context) ([]*entities.Feedback, error) {
	items, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		return []*entities.Feedback{}, nil
	}
	return items, nil
}

// GetSummary returns the count and average rating of all feedback.
func (s *FeedbackService) GetSummary(ctx context.Context) (*entities.FeedbackSummary, error) {
	items, err := s.GetAllFeedback(ctx)
	if err != nil {
		return nil, err
	}
	return entities.SummarizeFeedback(items), nil
}

// Create stores feedback, then notifies subscribers and the search index.
// Notification failures are logged and do not fail the call.
func (s *FeedbackService) Create(ctx context.Context, feedback *entities.Feedback) error {
	if feedback == nil {
		return apperrors.NewValidationError("feedback is required")
	}
	if feedback.ID == "" {
		feedback.ID = uuid.New().String()
	}
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Create(ctx, feedback); err != nil {
		return err
	}

	logger := observability.LoggerFromContext(ctx)

	if s.eventBus != nil {
		event := entities.NewFeedbackEvent(entities.FeedbackEventTypeCreated, feedback)
		if err := s.eventBus.Publish(ctx, providers.EventChannelFeedbackUpdates, event); err != nil {
			logger.Warn().Err(err).Str("feedback_id", feedback.ID).Msg("failed to publish feedback event")
		}
	}

	if s.search != nil {
		if err := s.search.Index(ctx, feedback); err != nil {
			logger.Warn().Err(err).Str("feedback_id", feedback.ID).Msg("failed to index feedback")
		}
	}

	return nil
}

// Search runs a full-text query over user names and comments.
func (s *FeedbackService) Search(ctx context.Context, query string, limit int) ([]*entities.Feedback, error) {
	if s.search == nil {
		return nil, apperrors.NewUnavailableError("feedback search is not enabled")
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("search query is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	results, err := s.search.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if results == nil {
		return []*entities.Feedback{}, nil
	}
	return results, nil
}
