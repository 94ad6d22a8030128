package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisSessionStoreLifecycle(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisSessionStore(client)
	ctx := context.Background()
	created := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	record := ports.SessionRecord{UserID: uuid.New(), CreatedAt: created, LastActivity: created}

	require.NoError(t, store.Put(ctx, "tok-1", record, 30*time.Minute))
	raw, err := mr.Get("session:tok-1")
	require.NoError(t, err)
	assert.Contains(t, raw, `"userId"`)
	assert.Contains(t, raw, `"lastActivity"`)

	got, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record.UserID, got.Record.UserID)
	assert.Equal(t, 30*time.Minute, got.TTL)

	mr.FastForward(10 * time.Minute)
	touched, err := store.Touch(ctx, "tok-1", created.Add(10*time.Minute))
	require.NoError(t, err)
	assert.True(t, touched)
	got, err = store.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Record.LastActivity.Equal(created.Add(10*time.Minute)))
	assert.Equal(t, 20*time.Minute, got.TTL, "touch must keep the remaining ttl")

	require.NoError(t, store.Delete(ctx, "tok-1"))
	got, err = store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	touched, err = store.Touch(ctx, "tok-1", created)
	require.NoError(t, err)
	assert.False(t, touched)
}

func TestRedisSessionStoreExpiresWithTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisSessionStore(client)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "tok-ttl", ports.SessionRecord{UserID: uuid.New()}, time.Minute))
	mr.FastForward(61 * time.Second)

	got, err := store.Get(ctx, "tok-ttl")
	require.NoError(t, err)
	assert.Nil(t, got)

	refreshed, err := store.Expire(ctx, "tok-ttl", time.Minute)
	require.NoError(t, err)
	assert.False(t, refreshed)
}

func TestRedisSessionStoreAll(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisSessionStore(client)
	ctx := context.Background()
	owner := uuid.New()

	for _, token := range []string{"a", "b", "c"} {
		require.NoError(t, store.Put(ctx, token, ports.SessionRecord{UserID: owner}, time.Hour))
	}
	require.NoError(t, mr.Set("unrelated", "x"))

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	tokens := map[string]bool{}
	for _, s := range all {
		tokens[s.Token] = true
		assert.Equal(t, owner, s.Record.UserID)
	}
	assert.True(t, tokens["a"] && tokens["b"] && tokens["c"])
}

func TestRedisRateLimitStoreWindow(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisRateLimitStore(client)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	for i := int64(1); i <= 4; i++ {
		bucket, err := store.Hit(ctx, "ratelimit:login:1.2.3.4", time.Minute, now)
		require.NoError(t, err)
		assert.Equal(t, i, bucket.Count)
	}

	mr.FastForward(61 * time.Second)
	bucket, err := store.Hit(ctx, "ratelimit:login:1.2.3.4", time.Minute, now.Add(61*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), bucket.Count)
}

func TestRedisRateLimitStoreConcurrentHitsAreDistinct(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisRateLimitStore(client)
	ctx := context.Background()

	const workers = 20
	seen := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bucket, err := store.Hit(ctx, "ratelimit:login:race", time.Minute, time.Now())
			if err == nil {
				seen <- bucket.Count
			}
		}()
	}
	wg.Wait()
	close(seen)

	counts := map[int64]bool{}
	for c := range seen {
		assert.False(t, counts[c], "count %d observed twice", c)
		counts[c] = true
	}
	assert.Len(t, counts, workers)
}

func TestMemoryRateLimitStoreWindow(t *testing.T) {
	store := NewMemoryRateLimitStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	for i := int64(1); i <= 3; i++ {
		bucket, err := store.Hit(ctx, "k", time.Minute, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		assert.Equal(t, i, bucket.Count)
	}
	bucket, err := store.Hit(ctx, "k", time.Minute, now.Add(61*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), bucket.Count)
	assert.True(t, bucket.WindowStart.Equal(now.Add(61*time.Second)))
}

func TestRedisChallengeStoreClaimsOnce(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisChallengeStore(client)
	ctx := context.Background()
	challenge := ports.PendingChallenge{UserID: uuid.New(), Reason: ports.ChallengeTwoFactor, IPAddress: "203.0.113.7"}

	require.NoError(t, store.Put(ctx, "ch-1", challenge, 5*time.Minute))
	got, err := store.Get(ctx, "ch-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, challenge.UserID, got.UserID)

	failures, err := store.RecordFailure(ctx, "ch-1", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), failures)

	claimed, err := store.Delete(ctx, "ch-1")
	require.NoError(t, err)
	assert.True(t, claimed)
	claimed, err = store.Delete(ctx, "ch-1")
	require.NoError(t, err)
	assert.False(t, claimed)

	got, err = store.Get(ctx, "ch-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// A challenge put back after a wrong answer keeps counting failures.
	require.NoError(t, store.Put(ctx, "ch-1", challenge, 5*time.Minute))
	failures, err = store.RecordFailure(ctx, "ch-1", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), failures)
}
