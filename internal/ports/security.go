package ports

import "time"

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenClaims are the signed claims carried by access and temporary tokens.
type TokenClaims struct {
	Subject   string    `json:"sub"`
	Role      string    `json:"role"`
	Email     string    `json:"email"`
	Temporary bool      `json:"temp"`
	TokenID   string    `json:"jti"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// TokenIssuer mints and validates signed, time-bounded tokens.
// Validate fails with domain.ErrTokenExpired or domain.ErrInvalidToken.
type TokenIssuer interface {
	Issue(subject string, claims TokenClaims, ttl time.Duration) (string, error)
	Validate(token string) (TokenClaims, error)
}

// OTPKey is a freshly provisioned TOTP secret.
type OTPKey struct {
	Secret          string
	ProvisioningURI string
	QRCodePNG       []byte
}

// OTPProvider generates and checks time-based one-time passwords.
type OTPProvider interface {
	Generate(accountName string) (OTPKey, error)
	Validate(secret, code string, at time.Time) bool
}

// TextSanitizer strips markup from client-controlled strings before they are stored.
type TextSanitizer interface {
	Sanitize(input string) string
}
