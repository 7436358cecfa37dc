// Package notify fans informational notifications out to connected sessions.
// Delivery is at-most-once: there is no replay and slow subscribers lose messages.
package notify

import (
	"context"
	"sync"

	"kuickmart/internal/domain"

	"go.uber.org/zap"
)

// DefaultBufferSize is the per-subscriber channel capacity
const DefaultBufferSize = 16

// Publisher sends a notification. Failures are logged, never returned.
type Publisher interface {
	Publish(ctx context.Context, n domain.Notification)
}

// Hub is an in-process fan-out. It is safe for concurrent use.
type Hub struct {
	mu         sync.RWMutex
	subs       map[uint64]chan domain.Notification
	nextID     uint64
	closed     bool
	bufferSize int
	logger     *zap.Logger
}

// NewHub creates a hub whose subscribers buffer up to bufferSize messages
func NewHub(bufferSize int, logger *zap.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		subs:       make(map[uint64]chan domain.Notification),
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once. After Close the
// channel comes back already closed.
func (h *Hub) Subscribe() (<-chan domain.Notification, func()) {
	ch := make(chan domain.Notification, h.bufferSize)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close closes every subscriber channel so open streams end, and turns
// later subscriptions away. It is safe to call more than once.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.logger.Info("Notification hub closed")
}

// Subscribers returns the number of registered subscribers
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers n to every subscriber without blocking
func (h *Hub) Publish(_ context.Context, n domain.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for _, ch := range h.subs {
		select {
		case ch <- n:
		default:
			dropped++
		}
	}

	if dropped > 0 {
		h.logger.Warn("Dropped notification for slow subscribers",
			zap.String("type", string(n.Type)),
			zap.Int("dropped", dropped),
			zap.Int("subscribers", len(h.subs)),
		)
	}
}
