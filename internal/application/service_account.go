package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

// Register creates a local account and emits a registration outbox event in one transaction.
// A verification token follows; its failure is logged since the user can ask again.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return RegisterResponse{}, err
	}
	fullName := strings.TrimSpace(req.FullName)
	if s.sanitizer != nil {
		fullName = s.sanitizer.Sanitize(fullName)
	}
	if fullName == "" {
		return RegisterResponse{}, fmt.Errorf("%w: full_name is required", domain.ErrInvalidInput)
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return RegisterResponse{}, err
	}

	rawRole := strings.TrimSpace(req.Role)
	if rawRole == "" {
		rawRole = s.cfg.DefaultRole
	}
	role, ok := domain.ParseRole(rawRole)
	if !ok {
		return RegisterResponse{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, rawRole)
	}
	if role == domain.RoleAdmin {
		return RegisterResponse{}, fmt.Errorf("%w: role %q cannot be self-assigned", domain.ErrInvalidInput, role)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFn()
	payload, err := jsonPayload(map[string]any{
		"email":         email,
		"role":          string(role),
		"registered_at": now,
	})
	if err != nil {
		return RegisterResponse{}, err
	}
	user, err := s.users.CreateWithOutboxTx(ctx, ports.CreateUserParams{
		Email:         email,
		FullName:      fullName,
		PasswordHash:  passwordHash,
		Role:          role,
		EmailVerified: false,
		RegisteredAt:  now,
	}, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventTypeUserRegistered,
		PartitionKey: email,
		Payload:      payload,
		OccurredAt:   now,
	})
	if err != nil {
		return RegisterResponse{}, err
	}

	if err := s.issueEmailVerification(ctx, user); err != nil {
		appLogger().WarnContext(ctx, "verification token not issued after registration",
			"operation", "register",
			"outcome", "degraded",
			"user_id", user.UserID,
			"error", err,
		)
	}
	appLogger().InfoContext(ctx, "user registered",
		"operation", "register",
		"outcome", "success",
		"user_id", user.UserID,
		"role", string(role),
	)
	return RegisterResponse{UserID: user.UserID}, nil
}

// RequestEmailVerification re-sends a verification token.
// Unknown and already verified addresses succeed silently to avoid account enumeration.
func (s *Service) RequestEmailVerification(ctx context.Context, req EmailVerificationRequest) error {
	if err := s.resetLimiter.Check(ctx, strings.TrimSpace(req.IPAddress)); err != nil {
		return err
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}
	if user.EmailVerified {
		return nil
	}
	return s.issueEmailVerification(ctx, user)
}

// VerifyEmail consumes a verification token and marks the email as verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: token is required", domain.ErrInvalidInput)
	}
	userID, err := s.recovery.ConsumeEmailVerificationToken(ctx, hashToken(token), s.nowFn())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidToken
		}
		return err
	}
	return s.credentials.SetEmailVerified(ctx, userID, true, s.nowFn())
}

// RequestPasswordReset creates a one-time reset token when the user exists.
// It returns success for unknown users to avoid account enumeration.
func (s *Service) RequestPasswordReset(ctx context.Context, req ForgotPasswordRequest) error {
	if err := s.resetLimiter.Check(ctx, strings.TrimSpace(req.IPAddress)); err != nil {
		return err
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}

	rawToken := randomHex(32)
	now := s.nowFn()
	expiresAt := now.Add(s.cfg.PasswordResetTokenTTL)
	if err := s.recovery.CreatePasswordResetToken(ctx, user.UserID, hashToken(rawToken), now, expiresAt); err != nil {
		return err
	}
	return s.enqueueEvent(ctx, eventTypePasswordResetRequested, user.UserID.String(), map[string]any{
		"user_id":    user.UserID.String(),
		"email":      user.Email,
		"token":      rawToken,
		"expires_at": expiresAt,
	})
}

// ResetPassword consumes a reset token and stores the new password through the history check.
// Every live session of the user is revoked afterwards.
func (s *Service) ResetPassword(ctx context.Context, req PasswordResetRequest) error {
	if strings.TrimSpace(req.Token) == "" {
		return fmt.Errorf("%w: token is required", domain.ErrInvalidInput)
	}
	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		return err
	}

	userID, err := s.recovery.ConsumePasswordResetToken(ctx, hashToken(req.Token), s.nowFn())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidToken
		}
		return err
	}
	if err := s.authenticator.ChangePassword(ctx, userID, req.NewPassword); err != nil {
		return err
	}

	if _, err := s.revokeOtherSessions(ctx, userID, ""); err != nil {
		appLogger().WarnContext(ctx, "sessions not revoked after password reset",
			"operation", "reset_password",
			"outcome", "degraded",
			"user_id", userID,
			"error", err,
		)
	}
	s.recordActivity(ctx, userID, domain.ActivityPasswordReset, "Password reset", req.IPAddress, req.UserAgent)
	if user, err := s.users.GetByID(ctx, userID); err == nil {
		s.sendAlert(ctx, user.Email, domain.AlertPasswordChanged, map[string]any{
			"ip_address": req.IPAddress,
			"changed_at": s.nowFn(),
			"via":        "password_reset",
		})
	}
	return nil
}

// ChangePassword rotates the caller's password and signs out every other session.
func (s *Service) ChangePassword(ctx context.Context, principal Principal, req ChangePasswordRequest) error {
	user, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnauthorized
		}
		return fmt.Errorf("load user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
		return domain.ErrInvalidCredentials
	}
	if err := s.authenticator.ChangePassword(ctx, user.UserID, req.NewPassword); err != nil {
		return err
	}

	revoked, err := s.revokeOtherSessions(ctx, user.UserID, principal.Token)
	if err != nil {
		appLogger().WarnContext(ctx, "other sessions not revoked after password change",
			"operation", "change_password",
			"outcome", "degraded",
			"user_id", user.UserID,
			"error", err,
		)
	}
	s.recordActivity(ctx, user.UserID, domain.ActivityPasswordChange, "Password changed", req.IPAddress, req.UserAgent)
	s.sendAlert(ctx, user.Email, domain.AlertPasswordChanged, map[string]any{
		"ip_address":       req.IPAddress,
		"changed_at":       s.nowFn(),
		"sessions_revoked": revoked,
	})
	appLogger().InfoContext(ctx, "password changed",
		"operation", "change_password",
		"outcome", "success",
		"user_id", user.UserID,
		"sessions_revoked", revoked,
	)
	return nil
}

func (s *Service) issueEmailVerification(ctx context.Context, user domain.User) error {
	rawToken := randomHex(32)
	now := s.nowFn()
	expiresAt := now.Add(s.cfg.EmailVerificationTokenTTL)
	if err := s.recovery.CreateEmailVerificationToken(ctx, user.UserID, hashToken(rawToken), now, expiresAt); err != nil {
		return fmt.Errorf("create verification token: %w", err)
	}
	return s.enqueueEvent(ctx, eventTypeEmailVerificationRequested, user.UserID.String(), map[string]any{
		"user_id":    user.UserID.String(),
		"email":      user.Email,
		"token":      rawToken,
		"expires_at": expiresAt,
	})
}
