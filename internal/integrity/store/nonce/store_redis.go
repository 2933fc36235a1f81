package nonce

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefix for nonce registration.
const nonceKeyPrefix = "eg:"

// RedisStore is the production nonce store. SET NX gives the atomic
// check-then-record the replay invariant needs, and it holds across all
// gateway instances sharing the Redis deployment.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// AddIfAbsent records key with ttl unless it already exists. The TTL lets
// Redis expire entries exactly when they leave the replay window.
func (s *RedisStore) AddIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	added, err := s.client.SetNX(ctx, nonceKeyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("nonce setnx: %w", err)
	}
	return added, nil
}
