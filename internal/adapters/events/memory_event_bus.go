package events

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/wingufactory/moodboard/backend/internal/domain/entities"
	"github.com/wingufactory/moodboard/backend/internal/domain/providers"
)

// ErrEventBusClosed is returned by a bus after Close.
var ErrEventBusClosed = errors.New("event bus closed")

// MemoryEventBus is an in-process EventBus for single-instance deployments.
type MemoryEventBus struct {
	subscribers *broadcaster
	closed      atomic.Bool
}

// NewMemoryEventBus creates an in-process event bus
func NewMemoryEventBus() providers.EventBus {
	return &MemoryEventBus{subscribers: newBroadcaster()}
}

// Publish delivers the event to current subscribers of channel
func (b *MemoryEventBus) Publish(ctx context.Context, channel string, event *entities.FeedbackEvent) error {
	if b.closed.Load() {
		return ErrEventBusClosed
	}
	b.subscribers.broadcast(channel, event)
	return nil
}

// Subscribe returns a channel of events that is closed when ctx is done
func (b *MemoryEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.FeedbackEvent, error) {
	if b.closed.Load() {
		return nil, ErrEventBusClosed
	}

	eventChan, _ := b.subscribers.add(channel)
	go func() {
		<-ctx.Done()
		b.subscribers.remove(channel, eventChan)
	}()
	return eventChan, nil
}

// Unsubscribe closes every subscriber of channel
func (b *MemoryEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.subscribers.closeChannel(channel)
	return nil
}

// Close closes all subscriptions
func (b *MemoryEventBus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, channel := range b.subscribers.channels() {
		b.subscribers.closeChannel(channel)
	}
	return nil
}
