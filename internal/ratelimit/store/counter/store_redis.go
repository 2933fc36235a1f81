package counter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"eventgate/internal/ratelimit/models"
)

// RedisCounterStore is the production counter store: a sorted set per key,
// scored by request time in nanoseconds. The expire-insert-count sequence
// runs inside one MULTI/EXEC transaction, so concurrent requests across all
// gateway instances observe a consistent count and the quota cannot be
// exceeded by a read-then-write race.
type RedisCounterStore struct {
	client *redis.Client
}

func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func (s *RedisCounterStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixNano()

	// Member must be unique per request; the UUID suffix disambiguates
	// requests landing on the same nanosecond.
	member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString())

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit pipeline: %w", err)
	}

	count := int(countCmd.Val())
	result := &models.RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(0, limit-count),
		ResetAt:   now.Add(window),
		TotalHits: count,
	}
	if !result.Allowed {
		result.RetryAfter = int(window.Seconds())
	}
	return result, nil
}

func (s *RedisCounterStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("rate limit reset: %w", err)
	}
	return nil
}

func (s *RedisCounterStore) Count(ctx context.Context, key string) (int, error) {
	count, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("rate limit count: %w", err)
	}
	return int(count), nil
}
