// Package statscache keeps computed match statistics in Redis between writes.
package statscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bloodlink/internal/matching/query"
	id "bloodlink/pkg/domain"
)

const (
	donorKeyPrefix   = "bloodlink:stats:donor:"
	requestKeyPrefix = "bloodlink:stats:request:"
	defaultTTL       = 2 * time.Minute
)

// RedisCache stores query.Statistics as JSON with a TTL. Writes that change a
// match invalidate both the donor and the request entries.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type Option func(*RedisCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func New(client *redis.Client, opts ...Option) *RedisCache {
	c := &RedisCache{client: client, ttl: defaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func DonorKey(donorID id.UserID) string {
	return donorKeyPrefix + donorID.String()
}

func RequestKey(requestID id.RequestID) string {
	return requestKeyPrefix + requestID.String()
}

// Get returns the cached statistics and whether the key was present.
func (c *RedisCache) Get(ctx context.Context, key string) (query.Statistics, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return query.Statistics{}, false, nil
	}
	if err != nil {
		return query.Statistics{}, false, fmt.Errorf("get cached statistics: %w", err)
	}
	var stats query.Statistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		return query.Statistics{}, false, fmt.Errorf("decode cached statistics: %w", err)
	}
	return stats, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, stats query.Statistics) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate deletes the given keys in one round trip.
func (c *RedisCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
