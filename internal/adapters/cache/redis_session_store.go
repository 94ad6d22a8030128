package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

const sessionKeyPrefix = "session:"

// RedisSessionStore keeps one JSON value per token under session:<token>, expiring with the token.
type RedisSessionStore struct {
	client    *redis.Client
	scanCount int64
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, scanCount: 200}
}

func (s *RedisSessionStore) Put(ctx context.Context, token string, record ports.SessionRecord, ttl time.Duration) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKeyPrefix+token, raw, ttl).Err()
}

func (s *RedisSessionStore) Get(ctx context.Context, token string) (*ports.StoredSession, error) {
	key := sessionKeyPrefix + token
	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	return decodeSession(token, getCmd, ttlCmd)
}

// Touch rewrites lastActivity with KEEPTTL, so activity never extends the session.
func (s *RedisSessionStore) Touch(ctx context.Context, token string, at time.Time) (bool, error) {
	key := sessionKeyPrefix + token
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	var record ports.SessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return false, fmt.Errorf("decode session: %w", err)
	}
	record.LastActivity = at
	updated, err := json.Marshal(record)
	if err != nil {
		return false, err
	}

	_, err = s.client.SetArgs(ctx, key, updated, redis.SetArgs{Mode: "XX", KeepTTL: true}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *RedisSessionStore) Expire(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	return s.client.PExpire(ctx, sessionKeyPrefix+token, ttl).Result()
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKeyPrefix+token).Err()
}

// All scans the session keyspace. Entries that expire mid-scan are skipped.
func (s *RedisSessionStore) All(ctx context.Context) ([]ports.StoredSession, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", s.scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	if len(keys) == 0 {
		return []ports.StoredSession{}, nil
	}

	pipe := s.client.Pipeline()
	gets := make([]*redis.StringCmd, len(keys))
	ttls := make([]*redis.DurationCmd, len(keys))
	for i, key := range keys {
		gets[i] = pipe.Get(ctx, key)
		ttls[i] = pipe.PTTL(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	out := make([]ports.StoredSession, 0, len(keys))
	for i, key := range keys {
		stored, err := decodeSession(key[len(sessionKeyPrefix):], gets[i], ttls[i])
		if err != nil || stored == nil {
			continue
		}
		out = append(out, *stored)
	}
	return out, nil
}

func decodeSession(token string, getCmd *redis.StringCmd, ttlCmd *redis.DurationCmd) (*ports.StoredSession, error) {
	raw, err := getCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	ttl := ttlCmd.Val()
	if ttl == -2 {
		return nil, nil
	}
	if ttl < 0 {
		ttl = 0
	}
	var record ports.SessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &ports.StoredSession{Token: token, Record: record, TTL: ttl}, nil
}
