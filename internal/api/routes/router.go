package routes

import (
	"net/http"

	"github.com/wingufactory/moodboard/backend/internal/api/handlers"
	"github.com/wingufactory/moodboard/backend/internal/api/middleware"
	"github.com/wingufactory/moodboard/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	feedbackHandler *handlers.FeedbackHandler
	healthHandler   *handlers.HealthHandler
	sseHandler      *handlers.SSEHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
	allowedOrigins  []string
}

// NewRouter creates a new router
func NewRouter(
	feedbackHandler *handlers.FeedbackHandler,
	healthHandler *handlers.HealthHandler,
	sseHandler *handlers.SSEHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		feedbackHandler: feedbackHandler,
		healthHandler:   healthHandler,
		sseHandler:      sseHandler,
		cacheMiddleware: cacheMiddleware,
		metrics:         metrics,
		allowedOrigins:  allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)
	r.mux.HandleFunc("GET /ready", r.healthHandler.Ready)

	// Feedback endpoints
	r.mux.HandleFunc("GET /api/feedback", r.feedbackHandler.ListFeedback)
	r.mux.HandleFunc("POST /api/feedback", r.feedbackHandler.SubmitFeedback)
	r.mux.HandleFunc("GET /api/feedback/summary", r.feedbackHandler.GetSummary)
	r.mux.HandleFunc("GET /api/feedback/search", r.feedbackHandler.SearchFeedback)

	// Stream endpoints, served here when events stay in this process
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/feedback", r.sseHandler.StreamFeedback)
		r.mux.HandleFunc("GET /api/stream/stats", r.sseHandler.Stats)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

// SetupStreamRoutes configures the routes served by the SSE server
func SetupStreamRoutes(sseHandler *handlers.SSEHandler, healthHandler *handlers.HealthHandler, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)

	mux.HandleFunc("GET /api/stream/feedback", sseHandler.StreamFeedback)
	mux.HandleFunc("GET /api/stream/stats", sseHandler.Stats)

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(allowedOrigins)(handler)

	return handler
}
