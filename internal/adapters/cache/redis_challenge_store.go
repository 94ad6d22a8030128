package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

const challengeKeyPrefix = "auth:challenge:"

// RedisChallengeStore stores pending second-factor challenges in Redis.
type RedisChallengeStore struct {
	client *redis.Client
}

func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

func (s *RedisChallengeStore) Put(ctx context.Context, id string, challenge ports.PendingChallenge, ttl time.Duration) error {
	raw, err := json.Marshal(challenge)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, challengeKeyPrefix+id, raw, ttl).Err()
}

func (s *RedisChallengeStore) Get(ctx context.Context, id string) (*ports.PendingChallenge, error) {
	raw, err := s.client.Get(ctx, challengeKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out ports.PendingChallenge
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete claims the challenge. Only the caller that actually removed the key sees true.
// The failure counter is left to expire on its own, so a challenge put back
// after a wrong answer keeps its count.
func (s *RedisChallengeStore) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.client.Del(ctx, challengeKeyPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

func (s *RedisChallengeStore) RecordFailure(ctx context.Context, id string, ttl time.Duration) (int64, error) {
	key := failureKey(id)
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

func failureKey(id string) string {
	return challengeKeyPrefix + id + ":failures"
}
