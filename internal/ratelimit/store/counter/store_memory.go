package counter

import (
	"context"
	"sync"
	"time"

	"eventgate/internal/ratelimit/models"
)

// InMemoryCounterStore implements CounterStore with process-local sliding
// windows. Quota enforcement only holds single-instance; distributed
// deployments must use the Redis store.
type InMemoryCounterStore struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	now     func() time.Time
}

// slidingWindow tracks request timestamps. Counting timestamps instead of
// fixed buckets prevents boundary bursts from doubling the effective limit.
type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

type Option func(*InMemoryCounterStore)

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryCounterStore) {
		s.now = now
	}
}

func NewInMemoryCounterStore(opts ...Option) *InMemoryCounterStore {
	s := &InMemoryCounterStore{
		windows: make(map[string]*slidingWindow),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow expires old entries, records this request, and counts the window.
// The current request is counted whether or not it is admitted, so hammering
// a full window keeps it full.
func (s *InMemoryCounterStore) Allow(_ context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sw := s.getOrCreateWindow(key, window)
	sw.expire(now)
	sw.timestamps = append(sw.timestamps, now)
	count := len(sw.timestamps)

	result := &models.RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(0, limit-count),
		ResetAt:   now.Add(window),
		TotalHits: count,
	}
	if !result.Allowed {
		result.RetryAfter = retryAfterSeconds(sw, now)
	}
	return result, nil
}

// Reset clears the rate limit counter for a key.
func (s *InMemoryCounterStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// Count returns the current request count for a key.
func (s *InMemoryCounterStore) Count(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sw := s.windows[key]
	if sw == nil {
		return 0, nil
	}
	sw.expire(s.now())
	return len(sw.timestamps), nil
}

// expire removes timestamps that have left the window.
func (sw *slidingWindow) expire(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// retryAfterSeconds estimates when the oldest entry leaves the window.
func retryAfterSeconds(sw *slidingWindow, now time.Time) int {
	if len(sw.timestamps) == 0 {
		return int(sw.window.Seconds())
	}
	wait := sw.timestamps[0].Add(sw.window).Sub(now)
	if wait < time.Second {
		return 1
	}
	return int((wait + time.Second - 1) / time.Second)
}

// getOrCreateWindow must be called while holding s.mu.
func (s *InMemoryCounterStore) getOrCreateWindow(key string, window time.Duration) *slidingWindow {
	if sw := s.windows[key]; sw != nil {
		return sw
	}
	sw := &slidingWindow{timestamps: []time.Time{}, window: window}
	s.windows[key] = sw
	return sw
}
