package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
)

// Authenticate resolves a bearer token into the calling principal.
// The token must verify, must not be a second-factor token and must still be registered.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, domain.ErrUnauthorized
	}
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return Principal{}, err
	}
	if claims.Temporary {
		return Principal{}, fmt.Errorf("%w: second-factor token cannot access resources", domain.ErrTwoFactorRequired)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: malformed subject", domain.ErrInvalidToken)
	}

	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		return Principal{}, err
	}
	if session == nil || session.UserID != userID {
		return Principal{}, domain.ErrSessionInactive
	}
	if err := s.sessions.Touch(ctx, token); err != nil {
		appLogger().WarnContext(ctx, "session activity not recorded",
			"operation", "authenticate",
			"outcome", "degraded",
			"user_id", userID,
			"error", err,
		)
	}
	return Principal{
		UserID: userID,
		Email:  claims.Email,
		Role:   claims.Role,
		Token:  token,
	}, nil
}

// Logout revokes the caller's current session.
func (s *Service) Logout(ctx context.Context, principal Principal, ip, userAgent string) error {
	if err := s.sessions.Revoke(ctx, principal.Token); err != nil {
		return err
	}
	s.recordActivity(ctx, principal.UserID, domain.ActivityLogout, "Logged out", ip, userAgent)
	return nil
}

// ListSessions returns the caller's live sessions, most recently active first.
func (s *Service) ListSessions(ctx context.Context, principal Principal) ([]SessionView, error) {
	sessions, err := s.sessions.ListActive(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, SessionView{
			SessionID:    sessionIDFor(session.Token),
			CreatedAt:    session.CreatedAt,
			LastActivity: session.LastActivity,
			ExpiresIn:    int64(session.TTL.Seconds()),
			Current:      session.Token == principal.Token,
		})
	}
	return out, nil
}

// RevokeSession ends one of the caller's sessions by its public id.
func (s *Service) RevokeSession(ctx context.Context, principal Principal, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	sessions, err := s.sessions.ListActive(ctx, principal.UserID)
	if err != nil {
		return err
	}
	for _, session := range sessions {
		if sessionIDFor(session.Token) != sessionID {
			continue
		}
		if err := s.sessions.Revoke(ctx, session.Token); err != nil {
			return err
		}
		s.recordActivity(ctx, principal.UserID, domain.ActivitySessionRevoked, "Session revoked", "", "")
		return nil
	}
	return domain.ErrNotFound
}

// revokeOtherSessions revokes every session of userID except keepToken.
// An empty keepToken revokes them all.
func (s *Service) revokeOtherSessions(ctx context.Context, userID uuid.UUID, keepToken string) (int, error) {
	sessions, err := s.sessions.ListActive(ctx, userID)
	if err != nil {
		return 0, err
	}
	revoked := 0
	for _, session := range sessions {
		if keepToken != "" && session.Token == keepToken {
			continue
		}
		if err := s.sessions.Revoke(ctx, session.Token); err != nil {
			return revoked, err
		}
		revoked++
	}
	return revoked, nil
}

// CurrentUser returns the caller's profile.
func (s *Service) CurrentUser(ctx context.Context, principal Principal) (*UserView, error) {
	user, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return toUserView(user), nil
}
