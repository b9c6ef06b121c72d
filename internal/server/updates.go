package server

import (
	"context"
	"sync"

	"github.com/bunkmate-app/bunkmate/backend/internal/room"
)

// UpdateHub fans collection-change notifications out to HTTP subscribers.
// The session's single dispatcher callback publishes here; each connected
// presentation client holds one buffered stream. Slow consumers drop
// notifications rather than block the merge pipeline.
type UpdateHub struct {
	mu          sync.RWMutex
	subscribers map[int64]*updateSubscriber
	nextID      int64
	bufferSize  int
}

type updateSubscriber struct {
	id     int64
	stream chan room.UpdateKind
}

// NewUpdateHub constructs an empty hub.
func NewUpdateHub() *UpdateHub {
	return &UpdateHub{
		subscribers: make(map[int64]*updateSubscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a stream that closes when the context ends.
func (h *UpdateHub) Subscribe(ctx context.Context) (<-chan room.UpdateKind, func()) {
	subscriber := &updateSubscriber{
		id:     h.nextSequence(),
		stream: make(chan room.UpdateKind, h.bufferSize),
	}
	h.mu.Lock()
	h.subscribers[subscriber.id] = subscriber
	h.mu.Unlock()

	cleanup := func() {
		h.mu.Lock()
		delete(h.subscribers, subscriber.id)
		h.mu.Unlock()
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish notifies every subscriber that a collection changed.
func (h *UpdateHub) Publish(kind room.UpdateKind) {
	h.mu.RLock()
	copies := make([]*updateSubscriber, 0, len(h.subscribers))
	for _, subscriber := range h.subscribers {
		copies = append(copies, subscriber)
	}
	h.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- kind:
		default:
		}
	}
}

func (h *UpdateHub) nextSequence() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	return h.nextID
}
