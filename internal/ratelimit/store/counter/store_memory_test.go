package counter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const (
	testLimit  = 5
	testWindow = time.Minute
)

type InMemoryCounterStoreSuite struct {
	suite.Suite
	ctx     context.Context
	current time.Time
	store   *InMemoryCounterStore
}

func TestInMemoryCounterStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryCounterStoreSuite))
}

func (s *InMemoryCounterStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.current = time.Now()
	s.store = NewInMemoryCounterStore(WithClock(func() time.Time { return s.current }))
}

func (s *InMemoryCounterStoreSuite) TestAllow() {
	s.Run("first request allowed", func() {
		result, err := s.store.Allow(s.ctx, "rl:api:first", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit, result.Limit)
		s.Equal(testLimit-1, result.Remaining)
		s.Equal(1, result.TotalHits)
	})

	s.Run("requests up to limit allowed", func() {
		for i := range testLimit {
			result, err := s.store.Allow(s.ctx, "rl:api:uptolimit", testLimit, testWindow)
			s.Require().NoError(err)
			s.True(result.Allowed, "request %d of %d must be allowed", i+1, testLimit)
		}
	})

	s.Run("request over limit denied with zero remaining", func() {
		for range testLimit {
			_, err := s.store.Allow(s.ctx, "rl:api:over", testLimit, testWindow)
			s.Require().NoError(err)
		}
		result, err := s.store.Allow(s.ctx, "rl:api:over", testLimit, testWindow)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal(0, result.Remaining)
		s.Equal(testLimit+1, result.TotalHits)
		s.Positive(result.RetryAfter)
	})
}

func (s *InMemoryCounterStoreSuite) TestWindowElapseResetsCount() {
	for range testLimit + 1 {
		_, err := s.store.Allow(s.ctx, "rl:api:elapse", testLimit, testWindow)
		s.Require().NoError(err)
	}

	s.current = s.current.Add(testWindow + time.Second)

	result, err := s.store.Allow(s.ctx, "rl:api:elapse", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(result.Allowed, "full window elapse resets the count")
	s.Equal(1, result.TotalHits)
}

func (s *InMemoryCounterStoreSuite) TestDeniedRequestsStillCount() {
	for range testLimit * 2 {
		_, err := s.store.Allow(s.ctx, "rl:api:hammer", testLimit, testWindow)
		s.Require().NoError(err)
	}

	count, err := s.store.Count(s.ctx, "rl:api:hammer")
	s.Require().NoError(err)
	s.Equal(testLimit*2, count, "denied requests keep the window full")
}

func (s *InMemoryCounterStoreSuite) TestReset() {
	for range testLimit {
		_, err := s.store.Allow(s.ctx, "rl:api:reset", testLimit, testWindow)
		s.Require().NoError(err)
	}

	s.Require().NoError(s.store.Reset(s.ctx, "rl:api:reset"))

	count, err := s.store.Count(s.ctx, "rl:api:reset")
	s.Require().NoError(err)
	s.Equal(0, count)
}

func (s *InMemoryCounterStoreSuite) TestKeysAreIndependent() {
	for range testLimit + 1 {
		_, err := s.store.Allow(s.ctx, "rl:api:a", testLimit, testWindow)
		s.Require().NoError(err)
	}

	result, err := s.store.Allow(s.ctx, "rl:api:b", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(result.Allowed, "exhausting one key must not affect another")
}
