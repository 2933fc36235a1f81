package memory

import (
	"context"
	"sync"

	audit "eventgate/pkg/platform/audit"
)

// InMemoryStore keeps audit events per site. Used by tests and single-node
// deployments; production fans out to Kafka instead.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.SiteID] = append(s.events[event.SiteID], event)
	return nil
}

func (s *InMemoryStore) ListBySite(_ context.Context, siteID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[siteID]...), nil
}

// ListAll returns all audit events across all sites (admin-only operation).
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []audit.Event
	for _, siteEvents := range s.events {
		all = append(all, siteEvents...)
	}
	return all, nil
}
