package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
)

func newTestTwoFactor() (*TwoFactorAuthenticator, *fakeTwoFactor) {
	repo := &fakeTwoFactor{creds: make(map[uuid.UUID]domain.TwoFactorCredential), codes: make(map[uuid.UUID]map[string]bool)}
	return NewTwoFactorAuthenticator(repo, &fakeOTP{}, "Test", 8).withClock(newTestClock().Now), repo
}

func TestTwoFactorSetupAndActivation(t *testing.T) {
	t.Parallel()

	auth, _ := newTestTwoFactor()
	ctx := context.Background()
	user := domain.User{UserID: uuid.New(), Email: "tfa@example.com"}

	setup, err := auth.Setup(ctx, user)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if setup.Secret == "" || len(setup.BackupCodes) != 8 {
		t.Fatalf("unexpected setup payload: %+v", setup)
	}
	if !strings.HasPrefix(setup.QRCodeDataURL, "data:image/png;base64,") {
		t.Fatalf("expected png data url, got %q", setup.QRCodeDataURL)
	}

	if err := auth.VerifySetup(ctx, user.UserID, "000000"); !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("wrong code should fail, got %v", err)
	}
	if status, _ := auth.Status(ctx, user.UserID); status.State != domain.TwoFactorPending {
		t.Fatalf("wrong code must leave the credential pending, got %s", status.State)
	}

	if err := auth.VerifySetup(ctx, user.UserID, validTOTPCode); err != nil {
		t.Fatalf("verify setup: %v", err)
	}
	status, _ := auth.Status(ctx, user.UserID)
	if status.State != domain.TwoFactorEnabled || status.BackupCodesRemaining != 8 {
		t.Fatalf("expected enabled with 8 codes, got %+v", status)
	}

	if _, err := auth.Setup(ctx, user); !errors.Is(err, domain.ErrTwoFactorAlreadyEnabled) {
		t.Fatalf("setup while enabled should fail, got %v", err)
	}
}

func TestTwoFactorBackupCodeWorksOnce(t *testing.T) {
	t.Parallel()

	auth, _ := newTestTwoFactor()
	ctx := context.Background()
	user := domain.User{UserID: uuid.New(), Email: "backup@example.com"}

	setup, err := auth.Setup(ctx, user)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := auth.ConsumeBackupCode(ctx, user.UserID, setup.BackupCodes[0]); !errors.Is(err, domain.ErrTwoFactorNotEnabled) {
		t.Fatalf("backup codes are unusable before activation, got %v", err)
	}
	if err := auth.VerifySetup(ctx, user.UserID, validTOTPCode); err != nil {
		t.Fatalf("verify setup: %v", err)
	}

	code := strings.ToUpper(setup.BackupCodes[0])
	if err := auth.ConsumeBackupCode(ctx, user.UserID, code); err != nil {
		t.Fatalf("first use: %v", err)
	}
	if err := auth.ConsumeBackupCode(ctx, user.UserID, code); !errors.Is(err, domain.ErrInvalidBackupCode) {
		t.Fatalf("second use should fail, got %v", err)
	}
	if status, _ := auth.Status(ctx, user.UserID); status.BackupCodesRemaining != 7 {
		t.Fatalf("expected 7 remaining codes, got %d", status.BackupCodesRemaining)
	}
}

func TestTwoFactorDisableRequiresValidCode(t *testing.T) {
	t.Parallel()

	auth, _ := newTestTwoFactor()
	ctx := context.Background()
	user := domain.User{UserID: uuid.New(), Email: "disable@example.com"}

	if err := auth.VerifySetup(ctx, user.UserID, validTOTPCode); !errors.Is(err, domain.ErrTwoFactorNotSetUp) {
		t.Fatalf("verify without setup should fail, got %v", err)
	}
	if _, err := auth.Setup(ctx, user); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := auth.VerifySetup(ctx, user.UserID, validTOTPCode); err != nil {
		t.Fatalf("verify setup: %v", err)
	}

	if err := auth.Disable(ctx, user.UserID, "999999"); !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("disable with wrong code should fail, got %v", err)
	}
	if err := auth.Disable(ctx, user.UserID, validTOTPCode); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if enabled, _ := auth.IsEnabled(ctx, user.UserID); enabled {
		t.Fatalf("credential should be gone after disable")
	}
}
