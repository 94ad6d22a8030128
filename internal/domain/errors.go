package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether email or password failed.
	// Unknown accounts and wrong passwords must produce the same error value.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")

	// ErrInvalidToken covers bad signatures, wrong algorithms, malformed payloads
	// and temporary tokens presented outside the second-factor step.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	// ErrSessionInactive is returned when a token is well formed but its session
	// was revoked or has expired in the registry.
	ErrSessionInactive = errors.New("session not active")

	ErrTwoFactorRequired       = errors.New("two-factor authentication required")
	ErrInvalidCode             = errors.New("invalid verification code")
	ErrInvalidBackupCode       = errors.New("invalid backup code")
	ErrTwoFactorNotEnabled     = errors.New("two-factor authentication not enabled")
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor authentication already enabled")
	ErrTwoFactorNotSetUp       = errors.New("two-factor authentication not set up")

	ErrDeviceNotFound = errors.New("device not found")
	ErrPasswordReused = errors.New("password was used recently")

	// ErrGeoUnavailable is never surfaced to callers of the login flow.
	// The anomaly detector turns it into a WarningGeoUnavailable.
	ErrGeoUnavailable = errors.New("geolocation unavailable")
)
