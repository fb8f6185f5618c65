package search

import (
	"context"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/wingufactory/moodboard/backend/internal/domain/entities"
	"github.com/wingufactory/moodboard/backend/internal/domain/repositories"
	tsclient "github.com/wingufactory/moodboard/backend/internal/infrastructure/clients/typesense"
	apperrors "github.com/wingufactory/moodboard/backend/pkg/errors"
)

// FeedbackSearchAdapter implements feedback search using Typesense
type FeedbackSearchAdapter struct {
	client *tsclient.Client
}

var _ repositories.FeedbackSearchRepository = (*FeedbackSearchAdapter)(nil)

// NewFeedbackSearchAdapter creates a new Typesense-backed search adapter
func NewFeedbackSearchAdapter(client *tsclient.Client) *FeedbackSearchAdapter {
	return &FeedbackSearchAdapter{client: client}
}

// Index upserts one feedback document
func (a *FeedbackSearchAdapter) Index(ctx context.Context, feedback *entities.Feedback) error {
	if feedback == nil {
		return apperrors.NewValidationError("feedback is nil")
	}
	_, err := a.client.Client().Collection(tsclient.FeedbackCollection).Documents().Upsert(ctx, feedbackDocument(feedback))
	if err != nil {
		return apperrors.NewExternalError("failed to index feedback", err)
	}
	return nil
}

// Search matches query against user names and comments, oldest first
func (a *FeedbackSearchAdapter) Search(ctx context.Context, query string, limit int) ([]*entities.Feedback, error) {
	params := &api.SearchCollectionParams{
		Q:       pointer.String(query),
		QueryBy: pointer.String("user_name,comments"),
		SortBy:  pointer.String("created_at:asc"),
		PerPage: pointer.Int(limit),
		Page:    pointer.Int(1),
	}

	result, err := a.client.Client().Collection(tsclient.FeedbackCollection).Documents().Search(ctx, params)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to search feedback", err)
	}

	items := []*entities.Feedback{}
	if result.Hits == nil {
		return items, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		items = append(items, documentToFeedback(*hit.Document))
	}
	return items, nil
}

func feedbackDocument(feedback *entities.Feedback) map[string]interface{} {
	return map[string]interface{}{
		"id":         feedback.ID,
		"user_name":  feedback.UserName,
		"comments":   feedback.Comments,
		"rating":     feedback.Rating,
		"created_at": feedback.CreatedAt.UnixMilli(),
	}
}

func documentToFeedback(doc map[string]interface{}) *entities.Feedback {
	feedback := &entities.Feedback{
		ID:       stringField(doc, "id"),
		UserName: stringField(doc, "user_name"),
		Comments: stringField(doc, "comments"),
		Rating:   int(numberField(doc, "rating")),
	}
	if ms := int64(numberField(doc, "created_at")); ms > 0 {
		feedback.CreatedAt = time.UnixMilli(ms).UTC()
	}
	return feedback
}

func stringField(doc map[string]interface{}, key string) string {
	if v, ok := doc[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func numberField(doc map[string]interface{}, key string) float64 {
	switch v := doc[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
