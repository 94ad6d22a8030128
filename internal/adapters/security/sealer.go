package security

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	minSealingKeyLength = 32
	sealingKeyInfo      = "session-security/totp-secret/v1"
)

var errSealedTooShort = errors.New("sealed secret is too short")

// SecretSealer encrypts small secrets at rest with XChaCha20-Poly1305.
// Output is nonce || ciphertext; the key is derived from the configured master key with HKDF-SHA256.
type SecretSealer struct {
	aead cipher.AEAD
}

func NewSecretSealer(masterKey []byte) (*SecretSealer, error) {
	if len(masterKey) < minSealingKeyLength {
		return nil, fmt.Errorf("sealing key must be at least %d bytes", minSealingKeyLength)
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, nil, []byte(sealingKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive sealing key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &SecretSealer{aead: aead}, nil
}

// NewEphemeralSecretSealer uses a random key. Sealed values become unreadable after restart.
func NewEphemeralSecretSealer() (*SecretSealer, error) {
	key := make([]byte, minSealingKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return NewSecretSealer(key)
}

func (s *SecretSealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *SecretSealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize()+s.aead.Overhead() {
		return nil, errSealedTooShort
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open sealed secret: %w", err)
	}
	return plaintext, nil
}
