package nonce

import (
	"context"
	"sync"
	"time"
)

// defaultSweepThreshold bounds memory: once the store grows past it, expired
// entries are swept on the next write.
const defaultSweepThreshold = 100_000

// InMemoryStore implements integrity.NonceStore for tests and single-node
// deployments. Replay protection only holds process-locally; multi-instance
// deployments must use the Redis store.
type InMemoryStore struct {
	mu             sync.Mutex
	entries        map[string]time.Time // key -> expiry
	sweepThreshold int
	now            func() time.Time
}

type Option func(*InMemoryStore)

// WithSweepThreshold overrides the size at which expired entries are swept.
func WithSweepThreshold(n int) Option {
	return func(s *InMemoryStore) {
		if n > 0 {
			s.sweepThreshold = n
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		entries:        make(map[string]time.Time),
		sweepThreshold: defaultSweepThreshold,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddIfAbsent records key with the given ttl if it is not already present.
// Only entries past their ttl are ever evicted; the store grows beyond the
// sweep threshold rather than dropping live entries, because early eviction
// would silently reopen the replay window.
func (s *InMemoryStore) AddIfAbsent(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if len(s.entries) >= s.sweepThreshold {
		s.sweep(now)
	}

	if expiry, ok := s.entries[key]; ok && now.Before(expiry) {
		return false, nil
	}
	s.entries[key] = now.Add(ttl)
	return true, nil
}

// Len reports the number of tracked entries, expired included.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweep removes expired entries. Must be called while holding s.mu.
func (s *InMemoryStore) sweep(now time.Time) {
	for key, expiry := range s.entries {
		if !now.Before(expiry) {
			delete(s.entries, key)
		}
	}
}
