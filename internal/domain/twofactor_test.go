package domain_test

import (
	"errors"
	"testing"

	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
)

func TestTwoFactorCredentialTransitions(t *testing.T) {
	t.Parallel()

	var unset *domain.TwoFactorCredential
	pending := &domain.TwoFactorCredential{Secret: "JBSWY3DPEHPK3PXP"}
	enabled := &domain.TwoFactorCredential{Secret: "JBSWY3DPEHPK3PXP", Enabled: true}

	cases := []struct {
		name         string
		cred         *domain.TwoFactorCredential
		state        domain.TwoFactorState
		setupErr     error
		activateErr  error
		requireEnErr error
	}{
		{name: "unset", cred: unset, state: domain.TwoFactorUnset, activateErr: domain.ErrTwoFactorNotSetUp, requireEnErr: domain.ErrTwoFactorNotEnabled},
		{name: "pending", cred: pending, state: domain.TwoFactorPending, requireEnErr: domain.ErrTwoFactorNotEnabled},
		{name: "enabled", cred: enabled, state: domain.TwoFactorEnabled, setupErr: domain.ErrTwoFactorAlreadyEnabled, activateErr: domain.ErrTwoFactorAlreadyEnabled},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.cred.State(); got != tc.state {
				t.Fatalf("state = %s, want %s", got, tc.state)
			}
			if err := tc.cred.CanSetup(); !errors.Is(err, tc.setupErr) {
				t.Fatalf("CanSetup() = %v, want %v", err, tc.setupErr)
			}
			if err := tc.cred.CanActivate(); !errors.Is(err, tc.activateErr) {
				t.Fatalf("CanActivate() = %v, want %v", err, tc.activateErr)
			}
			if err := tc.cred.RequireEnabled(); !errors.Is(err, tc.requireEnErr) {
				t.Fatalf("RequireEnabled() = %v, want %v", err, tc.requireEnErr)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	if r, ok := domain.ParseRole(" Event_Team "); !ok || r != domain.RoleEventTeam {
		t.Fatalf("expected event_team, got %q ok=%v", r, ok)
	}
	if _, ok := domain.ParseRole("superuser"); ok {
		t.Fatalf("expected unknown role to be rejected")
	}
}
