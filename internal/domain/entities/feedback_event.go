package entities

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackEventType represents the type of feedback event
type FeedbackEventType string

const (
	FeedbackEventTypeCreated FeedbackEventType = "feedback.created"
)

// FeedbackEvent is broadcast to live dashboards when the feedback set changes
type FeedbackEvent struct {
	ID        string            `json:"id"`
	EventType FeedbackEventType `json:"event_type"`
	Timestamp time.Time         `json:"timestamp"`
	Feedback  *Feedback         `json:"feedback"`
}

// NewFeedbackEvent creates a new feedback event
func NewFeedbackEvent(eventType FeedbackEventType, feedback *Feedback) *FeedbackEvent {
	return &FeedbackEvent{
		ID:        uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Feedback:  feedback,
	}
}
