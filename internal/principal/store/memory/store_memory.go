// Package memory provides an in-memory principal store for tests and
// single-process development setups.
package memory

import (
	"context"
	"sync"

	"eventgate/internal/principal"
)

// InMemoryStore holds site records and API key fingerprints in process
// memory. Safe for concurrent use.
type InMemoryStore struct {
	mu    sync.RWMutex
	sites map[string]principal.Site
	keys  map[string]string // fingerprint -> site ID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sites: make(map[string]principal.Site),
		keys:  make(map[string]string),
	}
}

// AddSite registers or replaces a site record.
func (s *InMemoryStore) AddSite(site principal.Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[site.ID] = site
}

// AddAPIKey binds a plaintext API key to a site. Only the fingerprint is
// retained.
func (s *InMemoryStore) AddAPIKey(key, siteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[principal.Fingerprint(key)] = siteID
}

func (s *InMemoryStore) ResolveAPIKey(_ context.Context, key string) (*principal.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	siteID, ok := s.keys[principal.Fingerprint(key)]
	if !ok {
		return nil, principal.ErrKeyUnknown
	}
	site, ok := s.sites[siteID]
	if !ok {
		return nil, principal.ErrKeyUnknown
	}
	if site.Status != principal.StatusActive {
		return nil, principal.ErrSiteInactive
	}
	return &site, nil
}

func (s *InMemoryStore) GetSite(_ context.Context, siteID string) (*principal.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	site, ok := s.sites[siteID]
	if !ok {
		return nil, principal.ErrSiteUnknown
	}
	return &site, nil
}
