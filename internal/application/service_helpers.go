package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

// normalizeEmail canonicalizes and validates email format before persistence/comparison.
func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

// hashToken stores one-way token fingerprints instead of raw secrets.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

// sessionIDFor is the public handle of a session; the raw token never leaves the registry.
func sessionIDFor(token string) string {
	return hashToken(token)[:32]
}

// randomHex returns a cryptographically random hex token.
func randomHex(bytesLen int) string {
	raw := make([]byte, bytesLen)
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}

// randomDigits returns a zero-padded random numeric code.
func randomDigits(size int) string {
	if size <= 0 {
		size = 6
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(size)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		n = big.NewInt(0)
	}
	return fmt.Sprintf("%0*d", size, n.Int64())
}

// recordActivity appends an audit entry. Audit failures are logged, never surfaced.
func (s *Service) recordActivity(ctx context.Context, userID uuid.UUID, kind domain.ActivityKind, description, ip, userAgent string) {
	if err := s.activities.Append(ctx, domain.LoginActivityRecord{
		UserID:      userID,
		Kind:        kind,
		Description: description,
		IPAddress:   ip,
		UserAgent:   userAgent,
		CreatedAt:   s.nowFn(),
	}); err != nil {
		appLogger().WarnContext(ctx, "failed to persist activity",
			"operation", "record_activity",
			"outcome", "failure",
			"activity_kind", string(kind),
			"error", err,
		)
	}
}

// sendAlert hands a security alert to the notifier. Delivery problems do not fail the caller.
func (s *Service) sendAlert(ctx context.Context, email string, kind domain.AlertKind, details map[string]any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendSecurityAlert(ctx, email, kind, details); err != nil {
		appLogger().WarnContext(ctx, "failed to send security alert",
			"operation", "send_security_alert",
			"outcome", "failure",
			"alert_kind", string(kind),
			"error", err,
		)
	}
}

func (s *Service) enqueueEvent(ctx context.Context, eventType, partitionKey string, payload map[string]any) error {
	raw, err := jsonPayload(payload)
	if err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      raw,
		OccurredAt:   s.nowFn(),
	})
}

func jsonPayload(payload map[string]any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return raw, nil
}
