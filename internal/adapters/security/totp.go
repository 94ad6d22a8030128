package security

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

const (
	totpPeriod     = 30
	totpSkew       = 1
	totpSecretSize = 20
	qrCodeSize     = 256
)

// TOTPProvider issues RFC 6238 secrets: SHA-1, six digits, 30 s steps,
// accepting one step of clock drift either side.
type TOTPProvider struct {
	issuer string
}

func NewTOTPProvider(issuer string) *TOTPProvider {
	if strings.TrimSpace(issuer) == "" {
		issuer = "session-security"
	}
	return &TOTPProvider{issuer: issuer}
}

func (p *TOTPProvider) Generate(accountName string) (ports.OTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.issuer,
		AccountName: accountName,
		Period:      totpPeriod,
		SecretSize:  totpSecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return ports.OTPKey{}, fmt.Errorf("generate totp secret: %w", err)
	}
	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return ports.OTPKey{}, fmt.Errorf("render totp qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ports.OTPKey{}, fmt.Errorf("encode totp qr code: %w", err)
	}
	return ports.OTPKey{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		QRCodePNG:       buf.Bytes(),
	}, nil
}

func (p *TOTPProvider) Validate(secret, code string, at time.Time) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, at.UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
