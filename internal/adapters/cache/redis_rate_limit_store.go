package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

// RedisRateLimitStore counts hits in fixed windows: INCR, then arm the expiry on the first hit.
// The window start is recovered from the remaining TTL.
type RedisRateLimitStore struct {
	client *redis.Client
}

func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

func (s *RedisRateLimitStore) Hit(ctx context.Context, key string, window time.Duration, now time.Time) (ports.RateLimitBucket, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return ports.RateLimitBucket{}, err
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return ports.RateLimitBucket{}, err
		}
		return ports.RateLimitBucket{Count: 1, WindowStart: now}, nil
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return ports.RateLimitBucket{}, err
	}
	if ttl < 0 {
		// A crash between INCR and PEXPIRE leaves a counter that never resets.
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return ports.RateLimitBucket{}, err
		}
		ttl = window
	}
	return ports.RateLimitBucket{Count: count, WindowStart: now.Add(ttl - window)}, nil
}
