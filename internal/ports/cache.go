package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RateLimitBucket is the counter state of one identifier's current window.
type RateLimitBucket struct {
	Count       int64
	WindowStart time.Time
}

// RateLimitStore counts hits per key in fixed windows.
// Hit must be atomic per key: concurrent callers never observe the same count.
type RateLimitStore interface {
	Hit(ctx context.Context, key string, window time.Duration, now time.Time) (RateLimitBucket, error)
}

// SessionRecord is the JSON value stored under session:<token>.
type SessionRecord struct {
	UserID       uuid.UUID `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// StoredSession pairs a record with its key and remaining lifetime.
type StoredSession struct {
	Token  string
	Record SessionRecord
	TTL    time.Duration
}

// SessionStore is the TTL-capable key-value store behind the session registry.
type SessionStore interface {
	Put(ctx context.Context, token string, record SessionRecord, ttl time.Duration) error
	// Get returns nil when the entry is absent or expired.
	Get(ctx context.Context, token string) (*StoredSession, error)
	// Touch rewrites lastActivity and keeps the remaining TTL. It reports false when absent.
	Touch(ctx context.Context, token string, at time.Time) (bool, error)
	// Expire re-arms the TTL. It reports false when absent.
	Expire(ctx context.Context, token string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, token string) error
	// All walks every live entry. Cost is proportional to the total number of sessions.
	All(ctx context.Context) ([]StoredSession, error)
}

// ChallengeReason tells why a login was parked behind a second factor.
type ChallengeReason string

const (
	ChallengeTwoFactor ChallengeReason = "two_factor"
	ChallengeStepUp    ChallengeReason = "risk_step_up"
)

// PendingChallenge is the server-side half of a temporary token.
// It carries auth context so completion can avoid another credential check.
type PendingChallenge struct {
	UserID        uuid.UUID         `json:"user_id"`
	Email         string            `json:"email"`
	Role          string            `json:"role"`
	Reason        ChallengeReason   `json:"reason"`
	EmailCodeHash string            `json:"email_code_hash,omitempty"`
	IPAddress     string            `json:"ip_address"`
	UserAgent     string            `json:"user_agent"`
	Headers       map[string]string `json:"headers,omitempty"`
	ExpiresAt     time.Time         `json:"expires_at"`
}

// ChallengeStore persists short-lived second-factor challenges.
type ChallengeStore interface {
	Put(ctx context.Context, id string, challenge PendingChallenge, ttl time.Duration) error
	// Get returns nil when the challenge is absent or expired.
	Get(ctx context.Context, id string) (*PendingChallenge, error)
	// Delete reports whether this caller removed the challenge; false means it was already consumed.
	Delete(ctx context.Context, id string) (bool, error)
	// RecordFailure counts failed completions against the challenge.
	RecordFailure(ctx context.Context, id string, ttl time.Duration) (int64, error)
}
