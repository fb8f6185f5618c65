package repositories

import (
	"context"

	"github.com/wingufactory/moodboard/backend/internal/domain/entities"
)

// FeedbackRepository defines the interface for feedback persistence.
type FeedbackRepository interface {
	// FindAll returns every persisted feedback record in storage order.
	FindAll(ctx context.Context) ([]*entities.Feedback, error)

	// Create persists a single feedback record.
	Create(ctx context.Context, feedback *entities.Feedback) error
}

// FeedbackSearchRepository defines full-text search over feedback.
type FeedbackSearchRepository interface {
	Index(ctx context.Context, feedback *entities.Feedback) error
	Search(ctx context.Context, query string, limit int) ([]*entities.Feedback, error)
}
