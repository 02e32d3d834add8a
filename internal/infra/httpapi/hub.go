package httpapi

import (
	"log/slog"
	"sync"

	"voice-recorder/internal/domain"
)

const subscriberBuffer = 16

// Hub fans recorder snapshots out to websocket subscribers. Publish never
// blocks, so it can run as a recorder observer.
type Hub struct {
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[chan domain.Snapshot]struct{}
	closed bool
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[chan domain.Snapshot]struct{}),
	}
}

func (h *Hub) Publish(snap domain.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- snap:
		default:
			// Slow subscriber: drop its oldest snapshot to make room.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Subscribe returns a channel of snapshots and a func that unsubscribes and
// closes it.
func (h *Hub) Subscribe() (<-chan domain.Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan domain.Snapshot, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
	h.logger.Debug("event hub closed")
}
