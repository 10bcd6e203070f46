// Package events provides the sinks behind thread.Notifier: an in-process
// broadcast hub for connected stream clients, a NATS publisher for fan-out
// across instances, and small combinators.
package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/example/comment-board/services/comments/internal/thread"
)

const DefaultSubscriberBuffer = 32

// Hub broadcasts events to in-process subscribers. A subscriber whose buffer
// is full misses the event rather than blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan thread.Event
	next   uint64
	buffer int
	log    *zap.Logger
}

func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{subs: make(map[uint64]chan thread.Event), buffer: buffer, log: log}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan thread.Event, func()) {
	ch := make(chan thread.Event, h.buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Notify(_ context.Context, ev thread.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.log.Debug("stream subscriber lagging, event dropped",
				zap.Uint64("subscriber", id),
				zap.String("event", ev.Name))
		}
	}
	return nil
}
