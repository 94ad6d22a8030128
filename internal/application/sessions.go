package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

// SessionRegistry maps issued tokens to session metadata in a TTL store.
type SessionRegistry struct {
	store ports.SessionStore
	nowFn func() time.Time
}

func NewSessionRegistry(store ports.SessionStore) *SessionRegistry {
	return &SessionRegistry{
		store: store,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (r *SessionRegistry) withClock(nowFn func() time.Time) *SessionRegistry {
	r.nowFn = nowFn
	return r
}

func (r *SessionRegistry) Register(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) (domain.Session, error) {
	if token == "" || ttl <= 0 {
		return domain.Session{}, fmt.Errorf("%w: session token and ttl are required", domain.ErrInvalidInput)
	}
	now := r.nowFn()
	record := ports.SessionRecord{UserID: userID, CreatedAt: now, LastActivity: now}
	if err := r.store.Put(ctx, token, record, ttl); err != nil {
		return domain.Session{}, fmt.Errorf("register session: %w", err)
	}
	return toSession(ports.StoredSession{Token: token, Record: record, TTL: ttl}), nil
}

// Get returns nil once the session was revoked or its TTL elapsed.
func (r *SessionRegistry) Get(ctx context.Context, token string) (*domain.Session, error) {
	stored, err := r.store.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if stored == nil {
		return nil, nil
	}
	session := toSession(*stored)
	return &session, nil
}

// Touch records activity without extending the TTL. Touching an absent session is a no-op.
func (r *SessionRegistry) Touch(ctx context.Context, token string) error {
	if _, err := r.store.Touch(ctx, token, r.nowFn()); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// Refresh re-arms the TTL of a live session.
func (r *SessionRegistry) Refresh(ctx context.Context, token string, ttl time.Duration) error {
	ok, err := r.store.Expire(ctx, token, ttl)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	if !ok {
		return domain.ErrSessionInactive
	}
	return nil
}

// Revoke is idempotent; revoking an absent token succeeds.
func (r *SessionRegistry) Revoke(ctx context.Context, token string) error {
	if err := r.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// ListActive walks the whole store and keeps the entries owned by userID.
// Cost grows with the total number of sessions, not with the user's own.
func (r *SessionRegistry) ListActive(ctx context.Context, userID uuid.UUID) ([]domain.Session, error) {
	all, err := r.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]domain.Session, 0)
	for _, stored := range all {
		if stored.Record.UserID != userID {
			continue
		}
		out = append(out, toSession(stored))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out, nil
}

func toSession(stored ports.StoredSession) domain.Session {
	return domain.Session{
		Token:        stored.Token,
		UserID:       stored.Record.UserID,
		CreatedAt:    stored.Record.CreatedAt,
		LastActivity: stored.Record.LastActivity,
		TTL:          stored.TTL,
	}
}
