package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/wingufactory/moodboard/backend/internal/domain/entities"
	"github.com/wingufactory/moodboard/backend/internal/domain/repositories"
	"github.com/wingufactory/moodboard/backend/internal/infrastructure/clients/postgres"
	"github.com/wingufactory/moodboard/backend/internal/infrastructure/observability"
	apperrors "github.com/wingufactory/moodboard/backend/pkg/errors"
)

const feedbackTable = "feedback"

// FeedbackAdapter implements feedback persistence in Postgres.
type FeedbackAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	dbx     *sqlx.DB
	metrics *observability.Metrics
}

// NewFeedbackAdapter creates a new feedback adapter. metrics may be nil.
func NewFeedbackAdapter(client *postgres.Client, metrics *observability.Metrics) repositories.FeedbackRepository {
	return &FeedbackAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		dbx:     sqlx.NewDb(client.DB(), "postgres"),
		metrics: metrics,
	}
}

// FindAll returns every feedback row in insertion order.
func (a *FeedbackAdapter) FindAll(ctx context.Context) ([]*entities.Feedback, error) {
	ctx, span := observability.StartSpan(ctx, "FeedbackAdapter.FindAll")
	defer span.End()
	start := time.Now()
	defer func() { observability.RecordDBMetric(ctx, a.metrics, "feedback.find_all", time.Since(start)) }()

	query, args, err := a.db.Select("id", "user_name", "comments", "rating", "created_at").
		From(feedbackTable).
		Order(goqu.I("created_at").Asc(), goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build feedback list query", err)
	}

	items := []*entities.Feedback{}
	if err := a.dbx.SelectContext(ctx, &items, query, args...); err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewInternalError("failed to list feedback", err)
	}

	return items, nil
}

// Create inserts a feedback record.
func (a *FeedbackAdapter) Create(ctx context.Context, feedback *entities.Feedback) error {
	if feedback == nil {
		return apperrors.NewValidationError("feedback is nil")
	}

	ctx, span := observability.StartSpan(ctx, "FeedbackAdapter.Create")
	defer span.End()
	start := time.Now()
	defer func() { observability.RecordDBMetric(ctx, a.metrics, "feedback.create", time.Since(start)) }()

	record := goqu.Record{
		"id":         feedback.ID,
		"user_name":  feedback.UserName,
		"comments":   feedback.Comments,
		"rating":     feedback.Rating,
		"created_at": feedback.CreatedAt,
	}

	query, args, err := a.db.Insert(feedbackTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build feedback insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		observability.RecordError(span, err)
		return apperrors.NewInternalError("failed to create feedback", err)
	}

	observability.RecordFeedbackCreated(ctx, a.metrics, feedback.Rating)
	return nil
}
