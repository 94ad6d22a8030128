package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

const minHMACSecretLength = 32

// JWTIssuer signs and validates access and second-factor tokens.
// Exactly one algorithm is accepted on validation; tokens signed any other way are rejected.
type JWTIssuer struct {
	method    jwt.SigningMethod
	kid       string
	signKey   any
	verifyKey any
	publicKey *rsa.PublicKey
	now       func() time.Time
}

// NewHMACIssuer builds an issuer for HS256, HS384 or HS512 with a shared secret.
func NewHMACIssuer(algorithm, secret string) (*JWTIssuer, error) {
	var method jwt.SigningMethod
	switch strings.ToUpper(strings.TrimSpace(algorithm)) {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported hmac algorithm %q", algorithm)
	}
	if len(secret) < minHMACSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", minHMACSecretLength)
	}
	key := []byte(secret)
	return &JWTIssuer{method: method, signKey: key, verifyKey: key, now: utcNow}, nil
}

// NewEphemeralHMACIssuer creates a random HS256 secret for local/dev use.
// Tokens do not survive a restart and are not shared across instances.
func NewEphemeralHMACIssuer() (*JWTIssuer, error) {
	key := make([]byte, 48)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return &JWTIssuer{method: jwt.SigningMethodHS256, signKey: key, verifyKey: key, now: utcNow}, nil
}

// NewRSAIssuer builds an RS256 issuer from configured PEM keys.
func NewRSAIssuer(kid, privateKeyPEM, publicKeyPEM string) (*JWTIssuer, error) {
	if kid == "" {
		return nil, errors.New("jwt key id (kid) is required")
	}
	if privateKeyPEM == "" || publicKeyPEM == "" {
		return nil, errors.New("jwt private/public keys are required")
	}

	priv, err := parseRSAPrivate(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	pub, err := parseRSAPublic(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return &JWTIssuer{
		method:    jwt.SigningMethodRS256,
		kid:       kid,
		signKey:   priv,
		verifyKey: pub,
		publicKey: pub,
		now:       utcNow,
	}, nil
}

// NewEphemeralRSAIssuer creates an in-memory keypair for local/dev use.
func NewEphemeralRSAIssuer(kid string) (*JWTIssuer, error) {
	if kid == "" {
		kid = "ephemeral-key-1"
	}
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return &JWTIssuer{
		method:    jwt.SigningMethodRS256,
		kid:       kid,
		signKey:   privateKey,
		verifyKey: &privateKey.PublicKey,
		publicKey: &privateKey.PublicKey,
		now:       utcNow,
	}, nil
}

// WithClock replaces the issuer's time source. Intended for tests.
func (j *JWTIssuer) WithClock(now func() time.Time) *JWTIssuer {
	j.now = now
	return j
}

func (j *JWTIssuer) Algorithm() string { return j.method.Alg() }

type tokenClaims struct {
	Role      string `json:"role"`
	Email     string `json:"email"`
	Temporary bool   `json:"temp,omitempty"`
	jwt.RegisteredClaims
}

func (j *JWTIssuer) Issue(subject string, claims ports.TokenClaims, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("token subject is required")
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	id := claims.TokenID
	if id == "" {
		id = uuid.NewString()
	}
	// Whole seconds keep iat/exp identical to what a verifier decodes.
	now := j.now().Truncate(time.Second)
	token := jwt.NewWithClaims(j.method, tokenClaims{
		Role:      claims.Role,
		Email:     claims.Email,
		Temporary: claims.Temporary,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	if j.kid != "" {
		token.Header["kid"] = j.kid
	}
	return token.SignedString(j.signKey)
}

func (j *JWTIssuer) Validate(raw string) (ports.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (any, error) {
		return j.verifyKey, nil
	},
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.TokenClaims{}, domain.ErrTokenExpired
		}
		return ports.TokenClaims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || claims.Subject == "" || claims.ID == "" || claims.IssuedAt == nil {
		return ports.TokenClaims{}, fmt.Errorf("%w: incomplete claims", domain.ErrInvalidToken)
	}
	return ports.TokenClaims{
		Subject:   claims.Subject,
		Role:      claims.Role,
		Email:     claims.Email,
		Temporary: claims.Temporary,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

// PublicJWKs publishes the verification key for RS256 issuers.
// HMAC issuers have nothing public to share and return an empty set.
func (j *JWTIssuer) PublicJWKs() []map[string]any {
	if j.publicKey == nil {
		return []map[string]any{}
	}
	e := big.NewInt(int64(j.publicKey.E)).Bytes()
	n := j.publicKey.N.Bytes()

	return []map[string]any{
		{
			"kid": j.kid,
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(n),
			"e":   base64.RawURLEncoding.EncodeToString(e),
		},
	}
}

func utcNow() time.Time { return time.Now().UTC() }

func parseRSAPrivate(raw string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(raw))
	if block == nil {
		return nil, errors.New("invalid private PEM")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	keyAny, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := keyAny.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}

func parseRSAPublic(raw string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(raw))
	if block == nil {
		return nil, errors.New("invalid public PEM")
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	keyAny, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := keyAny.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return key, nil
}
