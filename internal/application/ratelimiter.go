package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

// RateLimitPolicy is a fixed-window budget of Limit hits per Window.
type RateLimitPolicy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// RateLimiter throttles one class of requests per identifier.
// Separate purposes use separate limiters so their budgets never mix.
type RateLimiter struct {
	policy RateLimitPolicy
	store  ports.RateLimitStore
	nowFn  func() time.Time
}

func NewRateLimiter(policy RateLimitPolicy, store ports.RateLimitStore) *RateLimiter {
	if policy.Name == "" {
		policy.Name = "default"
	}
	return &RateLimiter{
		policy: policy,
		store:  store,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (l *RateLimiter) withClock(nowFn func() time.Time) *RateLimiter {
	l.nowFn = nowFn
	return l
}

// Check records one hit for identifier and rejects it once the window budget is spent.
// A store failure also rejects: an unavailable limiter must not open the gate.
func (l *RateLimiter) Check(ctx context.Context, identifier string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		identifier = "unknown"
	}
	key := "ratelimit:" + l.policy.Name + ":" + identifier

	bucket, err := l.store.Hit(ctx, key, l.policy.Window, l.nowFn())
	if err != nil {
		appLogger().ErrorContext(ctx, "rate limit store unavailable",
			"operation", "rate_limit_check",
			"outcome", "failure",
			"policy", l.policy.Name,
			"error", err,
		)
		return fmt.Errorf("%w: %s limiter unavailable", domain.ErrRateLimitExceeded, l.policy.Name)
	}
	if bucket.Count > int64(l.policy.Limit) {
		appLogger().WarnContext(ctx, "rate limit exceeded",
			"operation", "rate_limit_check",
			"outcome", "blocked",
			"policy", l.policy.Name,
			"identifier", identifier,
			"count", bucket.Count,
			"window_start", bucket.WindowStart,
		)
		return fmt.Errorf("%w: %s", domain.ErrRateLimitExceeded, l.policy.Name)
	}
	return nil
}
