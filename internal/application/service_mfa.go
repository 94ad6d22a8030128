package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
)

// SetupTwoFactor provisions a pending TOTP secret for the caller.
func (s *Service) SetupTwoFactor(ctx context.Context, principal Principal) (TwoFactorSetup, error) {
	user, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return TwoFactorSetup{}, domain.ErrUnauthorized
		}
		return TwoFactorSetup{}, fmt.Errorf("load user: %w", err)
	}
	return s.twoFactor.Setup(ctx, user)
}

// VerifyTwoFactorSetup activates the pending secret with a first valid code.
func (s *Service) VerifyTwoFactorSetup(ctx context.Context, principal Principal, code string) error {
	if err := s.twoFactor.VerifySetup(ctx, principal.UserID, code); err != nil {
		return err
	}
	s.recordActivity(ctx, principal.UserID, domain.ActivityTwoFactorEnabled, "Two-factor authentication enabled", "", "")
	appLogger().InfoContext(ctx, "two-factor enabled",
		"operation", "verify_two_factor_setup",
		"outcome", "success",
		"user_id", principal.UserID,
	)
	return nil
}

// DisableTwoFactor removes the caller's second factor after a valid code.
func (s *Service) DisableTwoFactor(ctx context.Context, principal Principal, code string) error {
	if err := s.twoFactor.Disable(ctx, principal.UserID, code); err != nil {
		return err
	}
	s.recordActivity(ctx, principal.UserID, domain.ActivityTwoFactorDisabled, "Two-factor authentication disabled", "", "")
	s.sendAlert(ctx, principal.Email, domain.AlertTwoFactorDisabled, map[string]any{
		"disabled_at": s.nowFn(),
	})
	appLogger().WarnContext(ctx, "two-factor disabled",
		"operation", "disable_two_factor",
		"outcome", "success",
		"user_id", principal.UserID,
	)
	return nil
}

// ConsumeBackupCode spends one of the caller's backup codes.
func (s *Service) ConsumeBackupCode(ctx context.Context, principal Principal, code string) error {
	if err := s.twoFactor.ConsumeBackupCode(ctx, principal.UserID, code); err != nil {
		return err
	}
	s.recordActivity(ctx, principal.UserID, domain.ActivityBackupCodeConsumed, "Backup code consumed", "", "")
	return nil
}

func (s *Service) TwoFactorStatus(ctx context.Context, principal Principal) (TwoFactorStatus, error) {
	return s.twoFactor.Status(ctx, principal.UserID)
}
