package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

// OutboxWorker delivers security events (registrations, mailer tokens,
// step-up codes and alerts) from the outbox to the configured publisher.
// Records are claimed with a lease, so several workers can share one table.
type OutboxWorker struct {
	logger     *slog.Logger
	outbox     ports.OutboxRepository
	publisher  ports.EventPublisher
	interval   time.Duration
	batchSize  int
	claimTTL   time.Duration
	maxRetries int
	now        func() time.Time
}

// NewOutboxWorker constructs the outbox publisher loop with sane defaults.
func NewOutboxWorker(
	logger *slog.Logger,
	outbox ports.OutboxRepository,
	publisher ports.EventPublisher,
	interval time.Duration,
	batchSize int,
	claimTTL time.Duration,
	maxRetries int,
) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if claimTTL <= 0 {
		claimTTL = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &OutboxWorker{
		logger:     logger,
		outbox:     outbox,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		claimTTL:   claimTTL,
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type deliveryOutcome int

const (
	delivered deliveryOutcome = iota
	retryScheduled
	deadLettered
)

func (w *OutboxWorker) log(ctx context.Context, level slog.Level, msg, operation string, fields ...any) {
	attrs := append([]any{
		"module", "events.outbox_worker",
		"layer", "adapter",
		"operation", operation,
	}, fields...)
	w.logger.Log(ctx, level, msg, attrs...)
}

// Run polls the outbox every interval until ctx is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil {
			w.log(ctx, slog.LevelError, "outbox iteration failed", "outbox_process_once",
				"outcome", "failure", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *OutboxWorker) processOnce(ctx context.Context) error {
	claimToken := uuid.NewString()
	records, err := w.outbox.ClaimUnpublished(ctx, w.batchSize, claimToken, w.now().Add(w.claimTTL))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	var counts [3]int
	for _, rec := range records {
		counts[w.deliver(ctx, rec, claimToken)]++
	}
	w.log(ctx, slog.LevelInfo, "outbox batch processed", "outbox_process_once",
		"outcome", "success",
		"batch_size", len(records),
		"published_count", counts[delivered],
		"failed_count", counts[retryScheduled],
		"dead_lettered_count", counts[deadLettered],
	)
	return nil
}

// deliver publishes one claimed record and settles it. Bookkeeping errors are
// logged only: the lease lapses and the record is picked up again.
func (w *OutboxWorker) deliver(ctx context.Context, rec ports.OutboxRecord, claimToken string) deliveryOutcome {
	now := w.now()
	if rec.RetryCount >= w.maxRetries {
		w.settle(ctx, rec, w.outbox.MarkDeadLettered(ctx, rec.OutboxID, claimToken, "retry threshold reached before publish", now))
		return deadLettered
	}

	pubErr := w.publisher.Publish(ctx, rec.EventType, rec.PartitionKey, rec.Payload)
	if pubErr == nil {
		w.settle(ctx, rec, w.outbox.MarkPublished(ctx, rec.OutboxID, claimToken, now))
		return delivered
	}

	attempts := rec.RetryCount + 1
	fields := []any{
		"outcome", "failure",
		"outbox_id", rec.OutboxID,
		"event_type", rec.EventType,
		"payload_bytes", len(rec.Payload),
		"retry_count", attempts,
		"error", pubErr,
	}
	if attempts >= w.maxRetries {
		w.log(ctx, slog.LevelError, "outbox message moved to dlq", "publish_event", fields...)
		w.settle(ctx, rec, w.outbox.MarkDeadLettered(ctx, rec.OutboxID, claimToken, pubErr.Error(), now))
		return deadLettered
	}
	w.log(ctx, slog.LevelWarn, "outbox publish failed; retry scheduled", "publish_event", fields...)
	w.settle(ctx, rec, w.outbox.MarkFailed(ctx, rec.OutboxID, claimToken, pubErr.Error(), now))
	return retryScheduled
}

func (w *OutboxWorker) settle(ctx context.Context, rec ports.OutboxRecord, err error) {
	if err == nil {
		return
	}
	w.log(ctx, slog.LevelWarn, "outbox record state not saved", "settle_record",
		"outcome", "failure",
		"outbox_id", rec.OutboxID,
		"error", err,
	)
}
