package cache

import (
	"context"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

const memorySweepEvery = 1024

type memoryBucket struct {
	bucket ports.RateLimitBucket
	window time.Duration
}

// MemoryRateLimitStore is the single-process limiter backend.
// Counters are lost on restart and not shared between replicas.
type MemoryRateLimitStore struct {
	mu      sync.Mutex
	buckets map[string]memoryBucket
	hits    int
}

func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{buckets: make(map[string]memoryBucket)}
}

func (s *MemoryRateLimitStore) Hit(_ context.Context, key string, window time.Duration, now time.Time) (ports.RateLimitBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits++
	if s.hits%memorySweepEvery == 0 {
		s.sweep(now)
	}

	entry, ok := s.buckets[key]
	if !ok || now.Sub(entry.bucket.WindowStart) >= window {
		entry = memoryBucket{bucket: ports.RateLimitBucket{WindowStart: now}, window: window}
	}
	entry.bucket.Count++
	s.buckets[key] = entry
	return entry.bucket, nil
}

func (s *MemoryRateLimitStore) sweep(now time.Time) {
	for key, entry := range s.buckets {
		if now.Sub(entry.bucket.WindowStart) >= entry.window {
			delete(s.buckets, key)
		}
	}
}
