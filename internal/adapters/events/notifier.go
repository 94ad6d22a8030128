package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

// AlertEventPrefix namespaces alert events, e.g. security.alert.new_device.
const AlertEventPrefix = "security.alert."

// OutboxNotifier turns security alerts into outbox events for the notification service.
// Going through the outbox keeps alert delivery off the login path.
type OutboxNotifier struct {
	outbox ports.OutboxRepository
	now    func() time.Time
}

func NewOutboxNotifier(outbox ports.OutboxRepository) *OutboxNotifier {
	return &OutboxNotifier{
		outbox: outbox,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (n *OutboxNotifier) SendSecurityAlert(ctx context.Context, email string, kind domain.AlertKind, details map[string]any) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: alert recipient is required", domain.ErrInvalidInput)
	}
	if details == nil {
		details = map[string]any{}
	}
	occurredAt := n.now()
	payload, err := json.Marshal(map[string]any{
		"email":       email,
		"alert":       string(kind),
		"details":     details,
		"occurred_at": occurredAt,
	})
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	return n.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    AlertEventPrefix + string(kind),
		PartitionKey: email,
		Payload:      payload,
		OccurredAt:   occurredAt,
	})
}
