package stream

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/realtime"
)

// MemoryTransport is an in-process change-event transport for tests and
// local development. Publish delivers synchronously to all handlers
// subscribed for the user.
type MemoryTransport struct {
	mu       sync.Mutex
	handlers map[uuid.UUID]map[int]func(entities.ChangeEvent)
	nextID   int
}

// NewMemoryTransport creates an empty in-memory transport
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		handlers: make(map[uuid.UUID]map[int]func(entities.ChangeEvent)),
	}
}

type memorySubscription struct {
	cancel func()
}

func (s *memorySubscription) Unsubscribe() error {
	s.cancel()
	return nil
}

// Subscribe registers a handler for the user's events
func (t *MemoryTransport) Subscribe(ctx context.Context, userID uuid.UUID, handler func(entities.ChangeEvent)) (realtime.TransportSubscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handlers[userID] == nil {
		t.handlers[userID] = make(map[int]func(entities.ChangeEvent))
	}
	id := t.nextID
	t.nextID++
	t.handlers[userID][id] = handler

	return &memorySubscription{cancel: func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.handlers[userID], id)
	}}, nil
}

// Publish delivers an event to every handler subscribed for the user
func (t *MemoryTransport) Publish(userID uuid.UUID, event entities.ChangeEvent) {
	t.mu.Lock()
	handlers := make([]func(entities.ChangeEvent), 0, len(t.handlers[userID]))
	for _, h := range t.handlers[userID] {
		handlers = append(handlers, h)
	}
	t.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}
