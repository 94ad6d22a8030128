package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type RegisterResponse struct {
	UserID uuid.UUID `json:"user_id"`
}

// LoginRequest carries the credentials plus what the transport observed about the client.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`

	IPAddress string            `json:"-"`
	UserAgent string            `json:"-"`
	Headers   map[string]string `json:"-"`
}

// LoginResponse is either a full session or a pending second-factor challenge.
type LoginResponse struct {
	RequiresTwoFactor bool      `json:"requiresTwoFactor,omitempty"`
	TempToken         string    `json:"tempToken,omitempty"`
	Methods           []string  `json:"methods,omitempty"`
	AccessToken       string    `json:"accessToken,omitempty"`
	TokenType         string    `json:"tokenType,omitempty"`
	ExpiresIn         int64     `json:"expiresIn,omitempty"`
	User              *UserView `json:"user,omitempty"`
}

// TwoFactorLoginRequest completes a login parked behind a temporary token.
type TwoFactorLoginRequest struct {
	TempToken string `json:"temp_token"`
	Code      string `json:"code"`
	Method    string `json:"method"`

	IPAddress string            `json:"-"`
	UserAgent string            `json:"-"`
	Headers   map[string]string `json:"-"`
}

type UserView struct {
	ID            uuid.UUID   `json:"id"`
	Email         string      `json:"email"`
	FullName      string      `json:"full_name"`
	Role          domain.Role `json:"role"`
	EmailVerified bool        `json:"email_verified"`
}

// Principal is the authenticated caller of a protected operation.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   string
	Token  string
}

type SessionView struct {
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresIn    int64     `json:"expires_in"`
	Current      bool      `json:"current"`
}

type DeviceView struct {
	DeviceID        string           `json:"device_id"`
	DisplayName     string           `json:"display_name"`
	LastIP          string           `json:"last_ip"`
	Location        *domain.Location `json:"location,omitempty"`
	Trusted         bool             `json:"trusted"`
	SuspiciousCount int              `json:"suspicious_count"`
	CreatedAt       time.Time        `json:"created_at"`
	LastUsedAt      time.Time        `json:"last_used_at"`
}

type ActivityView struct {
	Kind        domain.ActivityKind `json:"kind"`
	Description string              `json:"description"`
	IPAddress   string              `json:"ip_address"`
	UserAgent   string              `json:"user_agent"`
	CreatedAt   time.Time           `json:"created_at"`
}

type ActivityQuery struct {
	Page  int
	Limit int
}

type SecurityStatus struct {
	TwoFactorEnabled     bool           `json:"two_factor_enabled"`
	BackupCodesRemaining int            `json:"backup_codes_remaining"`
	DeviceCount          int            `json:"device_count"`
	TrustedDevices       int            `json:"trusted_devices"`
	SuspiciousDevices    int            `json:"suspicious_devices"`
	SecurityScore        int            `json:"security_score"`
	RecentActivity       []ActivityView `json:"recent_activity"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`

	IPAddress string `json:"-"`
}

type PasswordResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type EmailVerificationRequest struct {
	Email string `json:"email"`

	IPAddress string `json:"-"`
}

type TwoFactorCodeRequest struct {
	Code string `json:"code"`
}

func toUserView(user domain.User) *UserView {
	return &UserView{
		ID:            user.UserID,
		Email:         user.Email,
		FullName:      user.FullName,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
	}
}

func toDeviceView(d domain.Device) DeviceView {
	return DeviceView{
		DeviceID:        d.DeviceID,
		DisplayName:     d.DisplayName,
		LastIP:          d.LastIP,
		Location:        d.Location,
		Trusted:         d.Trusted,
		SuspiciousCount: d.SuspiciousCount,
		CreatedAt:       d.CreatedAt,
		LastUsedAt:      d.LastUsedAt,
	}
}

func toActivityView(rec domain.LoginActivityRecord) ActivityView {
	return ActivityView{
		Kind:        rec.Kind,
		Description: rec.Description,
		IPAddress:   rec.IPAddress,
		UserAgent:   rec.UserAgent,
		CreatedAt:   rec.CreatedAt,
	}
}
