package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/wingufactory/moodboard/backend/internal/domain/entities"
	"github.com/wingufactory/moodboard/backend/internal/domain/providers"
	redisclient "github.com/wingufactory/moodboard/backend/internal/infrastructure/clients/redis"
)

// RedisEventBus implements the EventBus interface using Redis Pub/Sub
type RedisEventBus struct {
	client        *redisclient.Client
	subscribers   *broadcaster
	subscriptions map[string]*redis.PubSub
	mu            sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:        client,
		subscribers:   newBroadcaster(),
		subscriptions: make(map[string]*redis.PubSub),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Publish publishes an event to all subscribers across instances
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.FeedbackEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().Str("channel", channel).Str("event_id", event.ID).Msg("published event")
	return nil
}

// Subscribe subscribes to events on a channel until ctx is done
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.FeedbackEvent, error) {
	if b.ctx.Err() != nil {
		return nil, ErrEventBusClosed
	}

	b.mu.Lock()
	if _, exists := b.subscriptions[channel]; !exists {
		pubsub := b.client.Client().Subscribe(b.ctx, channel)
		// wait for the server to confirm so events published right after Subscribe are delivered
		if _, err := pubsub.Receive(ctx); err != nil {
			b.mu.Unlock()
			_ = pubsub.Close()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		b.subscriptions[channel] = pubsub
		go b.receiveMessages(channel, pubsub)
	}
	eventChan, count := b.subscribers.add(channel)
	b.mu.Unlock()

	log.Info().Str("channel", channel).Int("subscribers", count).Msg("subscribed to channel")

	go func() {
		<-ctx.Done()
		b.removeSubscriber(channel, eventChan)
	}()

	return eventChan, nil
}

// receiveMessages decodes Redis messages and hands them to local subscribers.
// It runs until pubsub is closed or the bus shuts down.
func (b *RedisEventBus) receiveMessages(channel string, pubsub *redis.PubSub) {
	defer b.releaseSubscription(channel, pubsub)

	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event entities.FeedbackEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("failed to unmarshal event")
				continue
			}
			b.subscribers.broadcast(channel, &event)
		}
	}
}

// releaseSubscription tears down local subscribers only while pubsub is still the
// channel's active subscription; a replacement created by a later Subscribe is left alone.
func (b *RedisEventBus) releaseSubscription(channel string, pubsub *redis.PubSub) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if current, ok := b.subscriptions[channel]; ok && current == pubsub {
		delete(b.subscriptions, channel)
		b.subscribers.closeChannel(channel)
		log.Info().Str("channel", channel).Msg("closed subscription")
	}
	_ = pubsub.Close()
}

func (b *RedisEventBus) removeSubscriber(channel string, eventChan chan *entities.FeedbackEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining, removed := b.subscribers.remove(channel, eventChan)
	if !removed || remaining > 0 {
		return
	}

	if pubsub, ok := b.subscriptions[channel]; ok {
		_ = pubsub.Close()
		delete(b.subscriptions, channel)
		log.Info().Str("channel", channel).Msg("closed subscription")
	}
}

func (b *RedisEventBus) cleanupChannel(channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers.closeChannel(channel)

	if pubsub, ok := b.subscriptions[channel]; ok {
		delete(b.subscriptions, channel)
		if err := pubsub.Close(); err != nil {
			return fmt.Errorf("failed to close subscription %s: %w", channel, err)
		}
		log.Info().Str("channel", channel).Msg("closed subscription")
	}

	return nil
}

// Unsubscribe unsubscribes from a channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	return b.cleanupChannel(channel)
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	channels := make([]string, 0, len(b.subscriptions))
	for channel := range b.subscriptions {
		channels = append(channels, channel)
	}
	b.mu.Unlock()

	var errs []error
	for _, channel := range channels {
		if err := b.cleanupChannel(channel); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing event bus: %w", err)
	}

	log.Info().Msg("event bus closed")
	return nil
}
