package domain

import (
	"time"

	"github.com/google/uuid"
)

// TwoFactorState is the per-user second factor lifecycle: Unset -> Pending -> Enabled -> Unset.
type TwoFactorState string

const (
	TwoFactorUnset   TwoFactorState = "unset"
	TwoFactorPending TwoFactorState = "pending"
	TwoFactorEnabled TwoFactorState = "enabled"
)

// TwoFactorCredential is the single TOTP credential a user may hold.
// Secret is the plaintext base32 secret; adapters seal it at rest.
type TwoFactorCredential struct {
	UserID    uuid.UUID
	Secret    string
	Enabled   bool
	CreatedAt time.Time
	EnabledAt *time.Time
}

// State reports where the credential sits in the lifecycle. A nil credential is Unset.
func (c *TwoFactorCredential) State() TwoFactorState {
	switch {
	case c == nil:
		return TwoFactorUnset
	case c.Enabled:
		return TwoFactorEnabled
	default:
		return TwoFactorPending
	}
}

// CanSetup reports whether a new secret may be provisioned.
// A Pending credential may be replaced; an Enabled one must be disabled first.
func (c *TwoFactorCredential) CanSetup() error {
	if c.State() == TwoFactorEnabled {
		return ErrTwoFactorAlreadyEnabled
	}
	return nil
}

// CanActivate reports whether VerifySetup may move the credential to Enabled.
func (c *TwoFactorCredential) CanActivate() error {
	switch c.State() {
	case TwoFactorUnset:
		return ErrTwoFactorNotSetUp
	case TwoFactorEnabled:
		return ErrTwoFactorAlreadyEnabled
	default:
		return nil
	}
}

// RequireEnabled guards challenge, backup-code and disable operations.
func (c *TwoFactorCredential) RequireEnabled() error {
	if c.State() != TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}
	return nil
}
