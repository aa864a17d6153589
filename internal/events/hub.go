package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// subscriberBuffer is the per-subscriber queue length. Events for a full
// queue are dropped.
const subscriberBuffer = 32

type subscriber struct {
	userID int64
	ch     chan EventWithData
}

// Hub delivers published events to subscribers without blocking publishers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	dropped     atomic.Uint64
	origins     []string
	log         zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]*subscriber),
		log:         log.With().Str("service", "events").Logger(),
	}
}

// SetOriginPatterns sets the host patterns ServeWS accepts from cross-origin
// clients. With none, only same-origin upgrades succeed.
func (h *Hub) SetOriginPatterns(patterns []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.origins = append([]string(nil), patterns...)
}

// Subscribe registers a subscriber. userID 0 receives every event; any other
// value receives that user's events and system events. The returned cancel
// func unregisters the subscriber and closes the channel.
func (h *Hub) Subscribe(userID int64) (<-chan EventWithData, func()) {
	id := uuid.NewString()
	sub := &subscriber{userID: userID, ch: make(chan EventWithData, subscriberBuffer)}

	h.mu.Lock()
	h.subscribers[id] = sub
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, id)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Publish sends an event to every interested subscriber.
func (h *Hub) Publish(userID int64, module string, data EventData) {
	event := EventWithData{
		Type:      data.EventType(),
		Timestamp: time.Now(),
		Module:    module,
		UserID:    userID,
		Data:      data,
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		if sub.userID != 0 && event.UserID != 0 && sub.userID != event.UserID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			h.dropped.Add(1)
		}
	}

	h.log.Debug().
		Str("event_type", string(event.Type)).
		Str("module", module).
		Int64("user_id", userID).
		Msg("Event published")
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
