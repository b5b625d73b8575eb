package webhook

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"waweb/internal/constants"
	"waweb/pkg/circuitbreaker"
	"waweb/pkg/metrics"
)

// SeenCache is a best-effort fast path for spotting redelivered webhook
// events. MarkSeen returns true when the id has not been seen within the TTL.
// Correctness does not depend on it: the store's unique index on external_id
// is the backstop, so a cache miss or cache outage only costs an extra store
// round trip.
type SeenCache interface {
	MarkSeen(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

type RedisSeenCache struct {
	client *redis.Client
}

func NewRedisSeenCache(client *redis.Client) *RedisSeenCache {
	return &RedisSeenCache{client: client}
}

func (c *RedisSeenCache) MarkSeen(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	firstSeen, err := c.client.SetNX(ctx, constants.CacheKeyPrefixSeen+id, "1", ttl).Result()
	if err != nil {
		metrics.SeenCacheRequestsTotal.WithLabelValues("error").Inc()
		return false, err
	}
	if firstSeen {
		metrics.SeenCacheRequestsTotal.WithLabelValues("first_seen").Inc()
	} else {
		metrics.SeenCacheRequestsTotal.WithLabelValues("duplicate").Inc()
	}
	return firstSeen, nil
}

// CircuitBreakerSeenCache stops hammering Redis while it is down. With the
// breaker open MarkSeen reports the id as unseen, which degrades to the
// store-only path.
type CircuitBreakerSeenCache struct {
	cache   SeenCache
	breaker *circuitbreaker.Wrapper
}

func NewCircuitBreakerSeenCache(cache SeenCache, breaker *circuitbreaker.Wrapper) *CircuitBreakerSeenCache {
	return &CircuitBreakerSeenCache{cache: cache, breaker: breaker}
}

func (c *CircuitBreakerSeenCache) MarkSeen(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	result, err := c.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return c.cache.MarkSeen(ctx, id, ttl)
	})
	c.breaker.RecordRequest(err == nil)
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

// NoopSeenCache reports every id as unseen; used when Redis is not configured.
type NoopSeenCache struct{}

func (NoopSeenCache) MarkSeen(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	return true, nil
}
