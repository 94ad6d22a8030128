package security

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func newTestIssuer(t *testing.T, alg string) (*JWTIssuer, *stepClock) {
	t.Helper()
	clock := &stepClock{now: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)}
	issuer, err := NewHMACIssuer(alg, testSecret)
	require.NoError(t, err)
	return issuer.WithClock(clock.Now), clock
}

func TestJWTIssueAndValidate(t *testing.T) {
	t.Parallel()
	issuer, clock := newTestIssuer(t, "")
	require.Equal(t, "HS256", issuer.Algorithm())

	token, err := issuer.Issue("7b0f4c1e-8f1a-4f55-9d0e-1b1d3f5a7c9e", ports.TokenClaims{
		Role:      "student",
		Email:     "ada@example.com",
		Temporary: true,
		TokenID:   "challenge-1",
	}, 5*time.Minute)
	require.NoError(t, err)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "7b0f4c1e-8f1a-4f55-9d0e-1b1d3f5a7c9e", claims.Subject)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.True(t, claims.Temporary)
	assert.Equal(t, "challenge-1", claims.TokenID)
	assert.Equal(t, clock.now, claims.IssuedAt)
	assert.Equal(t, clock.now.Add(5*time.Minute), claims.ExpiresAt)
}

func TestJWTGeneratesTokenID(t *testing.T) {
	t.Parallel()
	issuer, _ := newTestIssuer(t, "HS512")

	a, err := issuer.Issue("user-1", ports.TokenClaims{}, time.Minute)
	require.NoError(t, err)
	b, err := issuer.Issue("user-1", ports.TokenClaims{}, time.Minute)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	claims, err := issuer.Validate(a)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.TokenID)
	assert.False(t, claims.Temporary)
}

func TestJWTExpired(t *testing.T) {
	t.Parallel()
	issuer, clock := newTestIssuer(t, "HS256")
	token, err := issuer.Issue("user-1", ports.TokenClaims{}, 30*time.Minute)
	require.NoError(t, err)

	clock.now = clock.now.Add(30 * time.Minute)
	_, err = issuer.Validate(token)
	require.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestJWTRejectsForeignTokens(t *testing.T) {
	t.Parallel()
	issuer, clock := newTestIssuer(t, "HS256")

	other, err := NewHMACIssuer("HS384", testSecret)
	require.NoError(t, err)
	other.WithClock(clock.Now)
	wrongAlg, err := other.Issue("user-1", ports.TokenClaims{}, time.Minute)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ID:        "x",
		IssuedAt:  jwt.NewNumericDate(clock.now),
		ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	valid, err := issuer.Issue("user-1", ports.TokenClaims{}, time.Minute)
	require.NoError(t, err)
	tampered := valid[:len(valid)-2] + "xx"

	for name, token := range map[string]string{
		"wrong algorithm": wrongAlg,
		"alg none":        unsigned,
		"tampered":        tampered,
		"garbage":         "not-a-token",
	} {
		_, err := issuer.Validate(token)
		assert.ErrorIs(t, err, domain.ErrInvalidToken, name)
	}
}

func TestJWTConfiguration(t *testing.T) {
	t.Parallel()
	_, err := NewHMACIssuer("HS256", "short")
	require.Error(t, err)
	_, err = NewHMACIssuer("ES256", testSecret)
	require.Error(t, err)
	_, err = NewRSAIssuer("", "x", "y")
	require.Error(t, err)
}

func TestJWTRS256(t *testing.T) {
	t.Parallel()
	issuer, err := NewEphemeralRSAIssuer("")
	require.NoError(t, err)

	token, err := issuer.Issue("user-1", ports.TokenClaims{Role: "volunteer"}, time.Minute)
	require.NoError(t, err)
	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "volunteer", claims.Role)

	keys := issuer.PublicJWKs()
	require.Len(t, keys, 1)
	assert.Equal(t, "ephemeral-key-1", keys[0]["kid"])

	hmacIssuer, err := NewEphemeralHMACIssuer()
	require.NoError(t, err)
	assert.Empty(t, hmacIssuer.PublicJWKs())
}

func TestTOTPProvider(t *testing.T) {
	t.Parallel()
	provider := NewTOTPProvider("Campus Events")
	key, err := provider.Generate("ada@example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key.ProvisioningURI, "otpauth://totp/"))
	assert.Contains(t, key.ProvisioningURI, "issuer=Campus")
	assert.True(t, bytes.HasPrefix(key.QRCodePNG, []byte("\x89PNG")))

	at := time.Date(2026, 3, 10, 14, 0, 15, 0, time.UTC)
	code, err := totp.GenerateCode(key.Secret, at)
	require.NoError(t, err)

	assert.True(t, provider.Validate(key.Secret, code, at))
	assert.True(t, provider.Validate(key.Secret, " "+code+" ", at))
	assert.True(t, provider.Validate(key.Secret, code, at.Add(30*time.Second)), "one step of drift is accepted")
	assert.False(t, provider.Validate(key.Secret, code, at.Add(90*time.Second)))
	assert.False(t, provider.Validate(key.Secret, "000000x", at))
}

func TestSecretSealer(t *testing.T) {
	t.Parallel()
	sealer, err := NewSecretSealer([]byte(testSecret))
	require.NoError(t, err)

	secret := []byte("JBSWY3DPEHPK3PXP")
	a, err := sealer.Seal(secret)
	require.NoError(t, err)
	b, err := sealer.Seal(secret)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "nonces must differ")
	assert.False(t, bytes.Contains(a, secret))

	opened, err := sealer.Open(a)
	require.NoError(t, err)
	assert.Equal(t, secret, opened)

	a[len(a)-1] ^= 0xff
	_, err = sealer.Open(a)
	require.Error(t, err)
	_, err = sealer.Open([]byte("short"))
	require.Error(t, err)

	other, err := NewEphemeralSecretSealer()
	require.NoError(t, err)
	_, err = other.Open(b)
	require.Error(t, err)

	_, err = NewSecretSealer([]byte("too short"))
	require.Error(t, err)
}

func TestStrictSanitizer(t *testing.T) {
	t.Parallel()
	s := NewStrictSanitizer()
	assert.Equal(t, "Work laptop", s.Sanitize("<b>Work</b> laptop"))
	assert.Equal(t, "Chrome on Linux", s.Sanitize("  Chrome on Linux "))
	assert.Empty(t, s.Sanitize(""))
}

func TestBcryptHasher(t *testing.T) {
	t.Parallel()
	hasher := NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("Str0ng!Passw0rd")
	require.NoError(t, err)
	require.NoError(t, hasher.Compare(hash, "Str0ng!Passw0rd"))
	require.ErrorIs(t, hasher.Compare(hash, "Str0ng!Passw0rd!"), domain.ErrInvalidCredentials)

	long := strings.Repeat("Ab1!", 30)
	hash, err = hasher.Hash(long)
	require.NoError(t, err)
	require.NoError(t, hasher.Compare(hash, long))
	require.Error(t, hasher.Compare(hash, long[:100]))
}
