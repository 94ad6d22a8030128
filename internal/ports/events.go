package ports

import (
	"context"

	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
)

// EventPublisher is the outbound event publish port used by the outbox worker.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, partitionKey string, payload []byte) error
}

// SecurityNotifier delivers security alerts to the account owner.
// Rendering and delivery belong to a downstream notification service.
type SecurityNotifier interface {
	SendSecurityAlert(ctx context.Context, email string, kind domain.AlertKind, details map[string]any) error
}
