package eventbus

import (
	"context"
	"sync"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

// InMemoryBus is a simple synchronous dispatcher. Handlers run on the
// publisher's goroutine; long-lived work (like a triage run) forks its
// own goroutine inside the handler.
type InMemoryBus struct {
	mu        sync.RWMutex
	listeners map[domain.EventType][]ports.EventHandler
}

var _ ports.EventBus = (*InMemoryBus)(nil)

// NewInMemoryBus creates a dispatcher instance.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		listeners: make(map[domain.EventType][]ports.EventHandler),
	}
}

// Publish synchronously invokes handlers for the given event.
func (b *InMemoryBus) Publish(ctx context.Context, event domain.Event) {
	b.mu.RLock()
	handlers := append([]ports.EventHandler{}, b.listeners[event.Type]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(ctx, event)
	}
}

// Subscribe registers a handler for the given event type.
func (b *InMemoryBus) Subscribe(eventType domain.EventType, handler ports.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventType] = append(b.listeners[eventType], handler)
}
