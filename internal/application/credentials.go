package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

// CredentialAuthenticator verifies passwords and owns the password-history policy.
type CredentialAuthenticator struct {
	users       ports.UserRepository
	credentials ports.CredentialRepository
	hasher      ports.PasswordHasher
	historySize int
	nowFn       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialAuthenticator(
	users ports.UserRepository,
	credentials ports.CredentialRepository,
	hasher ports.PasswordHasher,
	historySize int,
) *CredentialAuthenticator {
	if historySize <= 0 {
		historySize = 5
	}
	return &CredentialAuthenticator{
		users:       users,
		credentials: credentials,
		hasher:      hasher,
		historySize: historySize,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

func (a *CredentialAuthenticator) withClock(nowFn func() time.Time) *CredentialAuthenticator {
	a.nowFn = nowFn
	return a
}

// Verify looks the account up by exact email and compares the password hash.
// Unknown, inactive and mismatching accounts all fail with ErrInvalidCredentials,
// and unknown accounts still pay for one hash comparison.
func (a *CredentialAuthenticator) Verify(ctx context.Context, email, password string) (domain.User, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, fmt.Errorf("load user: %w", err)
		}
		_ = a.hasher.Compare(a.timingHash(), password)
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if err := a.hasher.Compare(user.PasswordHash, password); err != nil {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return user, nil
}

// RequireVerified gates token issuance on a confirmed email address.
func (a *CredentialAuthenticator) RequireVerified(user domain.User) error {
	if !user.EmailVerified {
		return domain.ErrEmailNotVerified
	}
	return nil
}

// ChangePassword stores a new password unless it matches one of the last K hashes.
func (a *CredentialAuthenticator) ChangePassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}
	recent, err := a.credentials.RecentPasswordHashes(ctx, userID, a.historySize)
	if err != nil {
		return fmt.Errorf("load password history: %w", err)
	}
	for _, previous := range recent {
		if a.hasher.Compare(previous, newPassword) == nil {
			return domain.ErrPasswordReused
		}
	}

	hash, err := a.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := a.credentials.UpdatePassword(ctx, userID, hash, a.historySize, a.nowFn()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (a *CredentialAuthenticator) timingHash() string {
	a.dummyOnce.Do(func() {
		hash, err := a.hasher.Hash(uuid.NewString())
		if err == nil {
			a.dummyHash = hash
		}
	})
	return a.dummyHash
}
