package events

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wingufactory/moodboard/backend/internal/domain/entities"
)

const subscriberBufferSize = 100

// broadcaster fans events out to the local subscribers of each channel.
type broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.FeedbackEvent]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{
		subscribers: make(map[string]map[chan *entities.FeedbackEvent]struct{}),
	}
}

// add registers a new subscriber and returns the subscriber count for channel.
func (b *broadcaster) add(channel string) (chan *entities.FeedbackEvent, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.FeedbackEvent]struct{})
	}
	eventChan := make(chan *entities.FeedbackEvent, subscriberBufferSize)
	b.subscribers[channel][eventChan] = struct{}{}
	return eventChan, len(b.subscribers[channel])
}

// remove closes one subscriber. It reports the remaining count and whether the subscriber was found.
func (b *broadcaster) remove(channel string, eventChan chan *entities.FeedbackEvent) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, exists := b.subscribers[channel]
	if !exists {
		return 0, false
	}
	if _, ok := subscribers[eventChan]; !ok {
		return len(subscribers), false
	}

	delete(subscribers, eventChan)
	close(eventChan)

	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
	}
	return len(subscribers), true
}

// broadcast delivers event to every subscriber of channel, dropping it for full buffers.
func (b *broadcaster) broadcast(channel string, event *entities.FeedbackEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for subscriber := range b.subscribers[channel] {
		select {
		case subscriber <- event:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("subscriber channel full, skipping event")
		}
	}
}

// closeChannel closes every subscriber of channel.
func (b *broadcaster) closeChannel(channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subscriber := range b.subscribers[channel] {
		close(subscriber)
	}
	delete(b.subscribers, channel)
}

func (b *broadcaster) channels() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	channels := make([]string, 0, len(b.subscribers))
	for channel := range b.subscribers {
		channels = append(channels, channel)
	}
	return channels
}
