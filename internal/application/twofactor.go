package application

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

// TwoFactorSetup is returned once, at provisioning time. Backup codes are never readable again.
type TwoFactorSetup struct {
	Secret          string   `json:"secret"`
	ProvisioningURI string   `json:"provisioning_uri"`
	QRCodeDataURL   string   `json:"qr_code_url,omitempty"`
	BackupCodes     []string `json:"backup_codes"`
}

// TwoFactorStatus summarises a user's second factor.
type TwoFactorStatus struct {
	State                domain.TwoFactorState `json:"state"`
	BackupCodesRemaining int                   `json:"backup_codes_remaining"`
}

// TwoFactorAuthenticator drives the Unset -> Pending -> Enabled -> Unset lifecycle.
type TwoFactorAuthenticator struct {
	repo            ports.TwoFactorRepository
	otp             ports.OTPProvider
	issuer          string
	backupCodeCount int
	nowFn           func() time.Time
}

func NewTwoFactorAuthenticator(repo ports.TwoFactorRepository, otp ports.OTPProvider, issuer string, backupCodeCount int) *TwoFactorAuthenticator {
	if backupCodeCount <= 0 {
		backupCodeCount = 8
	}
	return &TwoFactorAuthenticator{
		repo:            repo,
		otp:             otp,
		issuer:          issuer,
		backupCodeCount: backupCodeCount,
		nowFn:           func() time.Time { return time.Now().UTC() },
	}
}

func (a *TwoFactorAuthenticator) withClock(nowFn func() time.Time) *TwoFactorAuthenticator {
	a.nowFn = nowFn
	return a
}

// Setup provisions a fresh secret and backup codes in the Pending state.
// Calling it again while Pending replaces the previous secret.
func (a *TwoFactorAuthenticator) Setup(ctx context.Context, user domain.User) (TwoFactorSetup, error) {
	current, err := a.repo.Get(ctx, user.UserID)
	if err != nil {
		return TwoFactorSetup{}, fmt.Errorf("load two-factor credential: %w", err)
	}
	if err := current.CanSetup(); err != nil {
		return TwoFactorSetup{}, err
	}

	key, err := a.otp.Generate(user.Email)
	if err != nil {
		return TwoFactorSetup{}, fmt.Errorf("generate totp secret: %w", err)
	}
	codes := a.newBackupCodes()
	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		hashes = append(hashes, hashBackupCode(code))
	}

	if err := a.repo.SavePending(ctx, domain.TwoFactorCredential{
		UserID:    user.UserID,
		Secret:    key.Secret,
		CreatedAt: a.nowFn(),
	}, hashes); err != nil {
		return TwoFactorSetup{}, fmt.Errorf("save pending two-factor credential: %w", err)
	}

	setup := TwoFactorSetup{
		Secret:          key.Secret,
		ProvisioningURI: key.ProvisioningURI,
		BackupCodes:     codes,
	}
	if len(key.QRCodePNG) > 0 {
		setup.QRCodeDataURL = "data:image/png;base64," + base64.StdEncoding.EncodeToString(key.QRCodePNG)
	}
	return setup, nil
}

// VerifySetup activates a Pending credential. A wrong code leaves it Pending.
func (a *TwoFactorAuthenticator) VerifySetup(ctx context.Context, userID uuid.UUID, code string) error {
	cred, err := a.repo.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load two-factor credential: %w", err)
	}
	if err := cred.CanActivate(); err != nil {
		return err
	}
	if !a.otp.Validate(cred.Secret, normalizeCode(code), a.nowFn()) {
		return domain.ErrInvalidCode
	}
	if err := a.repo.Enable(ctx, userID, a.nowFn()); err != nil {
		return fmt.Errorf("enable two-factor credential: %w", err)
	}
	return nil
}

// Challenge validates a login-time TOTP code against the Enabled secret.
func (a *TwoFactorAuthenticator) Challenge(ctx context.Context, userID uuid.UUID, code string) error {
	cred, err := a.enabled(ctx, userID)
	if err != nil {
		return err
	}
	if !a.otp.Validate(cred.Secret, normalizeCode(code), a.nowFn()) {
		return domain.ErrInvalidCode
	}
	return nil
}

// ConsumeBackupCode accepts each backup code at most once.
func (a *TwoFactorAuthenticator) ConsumeBackupCode(ctx context.Context, userID uuid.UUID, code string) error {
	if _, err := a.enabled(ctx, userID); err != nil {
		return err
	}
	normalized := normalizeCode(code)
	if normalized == "" {
		return domain.ErrInvalidBackupCode
	}
	removed, err := a.repo.ConsumeBackupCode(ctx, userID, hashBackupCode(normalized))
	if err != nil {
		return fmt.Errorf("consume backup code: %w", err)
	}
	if !removed {
		return domain.ErrInvalidBackupCode
	}
	return nil
}

// Disable removes the credential after a valid TOTP code.
func (a *TwoFactorAuthenticator) Disable(ctx context.Context, userID uuid.UUID, code string) error {
	if err := a.Challenge(ctx, userID, code); err != nil {
		return err
	}
	if err := a.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete two-factor credential: %w", err)
	}
	return nil
}

func (a *TwoFactorAuthenticator) Status(ctx context.Context, userID uuid.UUID) (TwoFactorStatus, error) {
	cred, err := a.repo.Get(ctx, userID)
	if err != nil {
		return TwoFactorStatus{}, fmt.Errorf("load two-factor credential: %w", err)
	}
	status := TwoFactorStatus{State: cred.State()}
	if status.State == domain.TwoFactorEnabled {
		remaining, err := a.repo.CountBackupCodes(ctx, userID)
		if err != nil {
			return TwoFactorStatus{}, fmt.Errorf("count backup codes: %w", err)
		}
		status.BackupCodesRemaining = remaining
	}
	return status, nil
}

// IsEnabled reports whether logins of userID must present a second factor.
func (a *TwoFactorAuthenticator) IsEnabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	cred, err := a.repo.Get(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load two-factor credential: %w", err)
	}
	return cred.State() == domain.TwoFactorEnabled, nil
}

func (a *TwoFactorAuthenticator) enabled(ctx context.Context, userID uuid.UUID) (*domain.TwoFactorCredential, error) {
	cred, err := a.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load two-factor credential: %w", err)
	}
	if err := cred.RequireEnabled(); err != nil {
		return nil, err
	}
	return cred, nil
}

func (a *TwoFactorAuthenticator) newBackupCodes() []string {
	seen := make(map[string]struct{}, a.backupCodeCount)
	codes := make([]string, 0, a.backupCodeCount)
	for len(codes) < a.backupCodeCount {
		code := randomHex(4)
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

func hashBackupCode(code string) string {
	return hashToken(strings.ToLower(code))
}

func normalizeCode(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), " ", "")
}
