package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/wingufactory/moodboard/backend/internal/domain/entities"
)

// FeedbackService defines the feedback operations used by the handler.
type FeedbackService interface {
	GetAllFeedback(ctx context.Context) ([]*entities.Feedback, error)
	GetSummary(ctx context.Context) (*entities.FeedbackSummary, error)
	Create(ctx context.Context, feedback *entities.Feedback) error
	Search(ctx context.Context, query string, limit int) ([]*entities.Feedback, error)
}

// FeedbackHandler serves the mood board REST API.
type FeedbackHandler struct {
	service  FeedbackService
	guard    *SubmissionGuard
	validate *validator.Validate
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(service FeedbackService, guard *SubmissionGuard) *FeedbackHandler {
	return &FeedbackHandler{
		service:  service,
		guard:    guard,
		validate: newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type feedbackRequest struct {
	UserName string `json:"userName" validate:"required,max=100"`
	Comments string `json:"comments" validate:"max=1000"`
	Rating   int    `json:"rating" validate:"min=1,max=5"`
}

// ListFeedback handles GET /api/feedback
func (h *FeedbackHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.GetAllFeedback(r.Context())
	if err != nil {
		respondWithAppError(w, r, err, "failed to load feedback")
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

// GetSummary handles GET /api/feedback/summary
func (h *FeedbackHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetSummary(r.Context())
	if err != nil {
		respondWithAppError(w, r, err, "failed to load feedback summary")
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

// SearchFeedback handles GET /api/feedback/search?q=&limit=
func (h *FeedbackHandler) SearchFeedback(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondWithError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondWithError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	items, err := h.service.Search(r.Context(), query, limit)
	if err != nil {
		respondWithAppError(w, r, err, "failed to search feedback")
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

// SubmitFeedback handles POST /api/feedback
func (h *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var payload feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	payload.UserName = strings.TrimSpace(payload.UserName)
	payload.Comments = strings.TrimSpace(payload.Comments)

	if err := h.validate.Struct(payload); err != nil {
		respondWithError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	ip := clientIP(r)
	if h.guard != nil {
		if allowed, retryAfter := h.guard.Allow(r.Context(), ip); !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		if h.guard.Duplicate(r.Context(), feedbackFingerprint(payload, ip)) {
			respondWithJSON(w, http.StatusAccepted, map[string]string{
				"status": "duplicate_ignored",
			})
			return
		}
	}

	feedback := &entities.Feedback{
		UserName: payload.UserName,
		Comments: payload.Comments,
		Rating:   payload.Rating,
	}

	if err := h.service.Create(r.Context(), feedback); err != nil {
		respondWithAppError(w, r, err, "failed to submit feedback")
		return
	}

	respondWithJSON(w, http.StatusCreated, feedback)
}

func validationMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "invalid request payload"
	}

	fe := validationErrs[0]
	switch {
	case fe.Tag() == "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case fe.Kind() == reflect.String && fe.Tag() == "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case fe.Field() == "rating":
		return "rating must be between 1 and 5"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
