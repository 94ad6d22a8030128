package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivityKind is the closed set of audit entries the service writes.
type ActivityKind string

const (
	ActivityLoginSuccess       ActivityKind = "LOGIN_SUCCESS"
	ActivityLoginFailed        ActivityKind = "LOGIN_FAILED"
	ActivityLogout             ActivityKind = "LOGOUT"
	ActivityPasswordChange     ActivityKind = "PASSWORD_CHANGE"
	ActivityPasswordReset      ActivityKind = "PASSWORD_RESET"
	ActivityTwoFactorEnabled   ActivityKind = "TWO_FACTOR_ENABLED"
	ActivityTwoFactorDisabled  ActivityKind = "TWO_FACTOR_DISABLED"
	ActivityBackupCodeConsumed ActivityKind = "BACKUP_CODE_CONSUMED"
	ActivityDeviceTrusted      ActivityKind = "DEVICE_TRUSTED"
	ActivityDeviceRemoved      ActivityKind = "DEVICE_REMOVED"
	ActivitySessionRevoked     ActivityKind = "SESSION_REVOKED"
)

// Valid reports whether k is one of the known kinds.
func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityLoginSuccess, ActivityLoginFailed, ActivityLogout, ActivityPasswordChange,
		ActivityPasswordReset, ActivityTwoFactorEnabled, ActivityTwoFactorDisabled,
		ActivityBackupCodeConsumed, ActivityDeviceTrusted, ActivityDeviceRemoved, ActivitySessionRevoked:
		return true
	default:
		return false
	}
}

// LoginActivityRecord is an append-only audit entry.
type LoginActivityRecord struct {
	ID          int64
	UserID      uuid.UUID
	Kind        ActivityKind
	Description string
	IPAddress   string
	UserAgent   string
	CreatedAt   time.Time
}
