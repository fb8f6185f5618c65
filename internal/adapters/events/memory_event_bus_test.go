package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingufactory/moodboard/backend/internal/domain/entities"
	"github.com/wingufactory/moodboard/backend/internal/domain/providers"
)

func receive(t *testing.T, ch <-chan *entities.FeedbackEvent) *entities.FeedbackEvent {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "channel closed")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestMemoryEventBus_PublishReachesAllSubscribers(t *testing.T) {
	bus := NewMemoryEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := bus.Subscribe(ctx, providers.EventChannelFeedbackUpdates)
	require.NoError(t, err)
	second, err := bus.Subscribe(ctx, providers.EventChannelFeedbackUpdates)
	require.NoError(t, err)

	event := entities.NewFeedbackEvent(entities.FeedbackEventTypeCreated, &entities.Feedback{ID: "1", UserName: "Alice", Rating: 5})
	require.NoError(t, bus.Publish(ctx, providers.EventChannelFeedbackUpdates, event))

	assert.Equal(t, event.ID, receive(t, first).ID)
	assert.Equal(t, event.ID, receive(t, second).ID)
}

func TestMemoryEventBus_OtherChannelsAreIsolated(t *testing.T) {
	bus := NewMemoryEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := bus.Subscribe(ctx, "other")
	require.NoError(t, err)

	event := entities.NewFeedbackEvent(entities.FeedbackEventTypeCreated, &entities.Feedback{ID: "1"})
	require.NoError(t, bus.Publish(ctx, providers.EventChannelFeedbackUpdates, event))

	select {
	case <-sub:
		t.Fatal("unexpected event on unrelated channel")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryEventBus_ContextCancelClosesSubscription(t *testing.T) {
	bus := NewMemoryEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := bus.Subscribe(ctx, providers.EventChannelFeedbackUpdates)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-sub:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription was not closed")
	}
}

func TestMemoryEventBus_Close(t *testing.T) {
	bus := NewMemoryEventBus()

	sub, err := bus.Subscribe(context.Background(), providers.EventChannelFeedbackUpdates)
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	_, ok := <-sub
	assert.False(t, ok)

	err = bus.Publish(context.Background(), providers.EventChannelFeedbackUpdates, &entities.FeedbackEvent{ID: "x"})
	assert.ErrorIs(t, err, ErrEventBusClosed)

	_, err = bus.Subscribe(context.Background(), providers.EventChannelFeedbackUpdates)
	assert.ErrorIs(t, err, ErrEventBusClosed)
}
