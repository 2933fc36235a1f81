package events

import (
	"context"
	"sync"
)

// Sink receives admitted events. Implementations own durability; the handler
// only guarantees that everything it records passed the access gate.
type Sink interface {
	Record(ctx context.Context, event TrackedEvent) error
	ListBySite(ctx context.Context, siteID string) ([]TrackedEvent, error)
}

// MemorySink buffers events per site in process memory. Development and test
// use; production wires a pipeline-backed sink instead.
type MemorySink struct {
	mu     sync.RWMutex
	events map[string][]TrackedEvent
}

func NewMemorySink() *MemorySink {
	return &MemorySink{events: make(map[string][]TrackedEvent)}
}

func (s *MemorySink) Record(_ context.Context, event TrackedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.SiteID] = append(s.events[event.SiteID], event)
	return nil
}

func (s *MemorySink) ListBySite(_ context.Context, siteID string) ([]TrackedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]TrackedEvent{}, s.events[siteID]...), nil
}
