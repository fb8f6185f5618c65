package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wingufactory/moodboard/backend/internal/domain/entities"
	"github.com/wingufactory/moodboard/backend/internal/domain/providers"
)

const defaultHeartbeatInterval = 30 * time.Second

// SSEHandler streams feedback events to mood board clients
type SSEHandler struct {
	eventBus          providers.EventBus
	clients           atomic.Int64
	heartbeatInterval time.Duration
}

// SSEOption configures an SSEHandler
type SSEOption func(*SSEHandler)

// WithHeartbeatInterval overrides how often idle streams receive a heartbeat
func WithHeartbeatInterval(d time.Duration) SSEOption {
	return func(h *SSEHandler) {
		if d > 0 {
			h.heartbeatInterval = d
		}
	}
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus, opts ...SSEOption) *SSEHandler {
	h := &SSEHandler{
		eventBus:          eventBus,
		heartbeatInterval: defaultHeartbeatInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// StreamFeedback handles GET /api/stream/feedback
func (h *SSEHandler) StreamFeedback(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	channel := providers.EventChannelFeedbackUpdates

	eventChan, err := h.eventBus.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("failed to subscribe")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	connected := h.clients.Add(1)
	defer h.clients.Add(-1)
	log.Info().Int64("clients", connected).Msg("feedback stream client connected")

	clientChan := make(chan *entities.FeedbackEvent, 10)
	go h.forwardEvents(ctx, eventChan, clientChan)

	h.sendEvent(w, "connected", map[string]interface{}{
		"channel":   channel,
		"timestamp": time.Now(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("feedback stream client disconnected")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event, ok := <-clientChan:
			if !ok {
				return
			}
			h.sendEvent(w, string(event.EventType), event)
			flusher.Flush()
		}
	}
}

// Stats handles GET /api/stream/stats
func (h *SSEHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]int64{
		"connected_clients": h.ClientCount(),
	})
}

// ClientCount returns the number of connected stream clients
func (h *SSEHandler) ClientCount() int64 {
	return h.clients.Load()
}

// forwardEvents copies bus events to the client, dropping them when the client lags
func (h *SSEHandler) forwardEvents(ctx context.Context, eventChan <-chan *entities.FeedbackEvent, clientChan chan<- *entities.FeedbackEvent) {
	defer close(clientChan)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			select {
			case clientChan <- event:
			default:
				log.Warn().Str("event_id", event.ID).Msg("client lagging, dropping event")
			}
		}
	}
}

func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}
