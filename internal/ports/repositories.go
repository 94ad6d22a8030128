package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
)

// CreateUserParams captures atomic user-creation inputs.
type CreateUserParams struct {
	Email         string
	FullName      string
	PasswordHash  string
	Role          domain.Role
	EmailVerified bool
	RegisteredAt  time.Time
}

// UserRepository defines persistence operations for user identities.
// The transactional create method keeps the user row, its first password-history
// entry and the registration event consistent.
type UserRepository interface {
	CreateWithOutboxTx(ctx context.Context, params CreateUserParams, outboxEvent OutboxEvent) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
}

// CredentialRepository manages mutable credential state and the password-history ledger.
type CredentialRepository interface {
	// RecentPasswordHashes returns at most limit hashes, newest first.
	RecentPasswordHashes(ctx context.Context, userID uuid.UUID, limit int) ([]string, error)
	// UpdatePassword stores the new hash, appends it to the history and trims the
	// history to the newest keep entries in one transaction.
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string, keep int, updatedAt time.Time) error
	SetEmailVerified(ctx context.Context, userID uuid.UUID, verified bool, updatedAt time.Time) error
}

// DeviceRepository persists recognised devices.
type DeviceRepository interface {
	// Upsert creates the device or records a new sighting on the existing row.
	// The returned sighting is the state before this call, nil for a new device.
	Upsert(ctx context.Context, device domain.Device) (domain.Device, *domain.DeviceSighting, error)
	GetByID(ctx context.Context, deviceID string) (domain.Device, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Device, error)
	// SetTrusted and Delete only touch rows owned by userID and return domain.ErrNotFound otherwise.
	SetTrusted(ctx context.Context, deviceID string, userID uuid.UUID, trusted bool) error
	Delete(ctx context.Context, deviceID string, userID uuid.UUID) error
	IncrementSuspicious(ctx context.Context, deviceID string) (int, error)
}

// TwoFactorRepository stores the per-user TOTP credential and its backup codes.
type TwoFactorRepository interface {
	// Get returns nil when the user holds no credential.
	Get(ctx context.Context, userID uuid.UUID) (*domain.TwoFactorCredential, error)
	// SavePending replaces any pending credential and its backup codes.
	SavePending(ctx context.Context, cred domain.TwoFactorCredential, backupCodeHashes []string) error
	Enable(ctx context.Context, userID uuid.UUID, enabledAt time.Time) error
	Delete(ctx context.Context, userID uuid.UUID) error
	// ConsumeBackupCode deletes the matching code and reports whether one was removed.
	ConsumeBackupCode(ctx context.Context, userID uuid.UUID, codeHash string) (bool, error)
	CountBackupCodes(ctx context.Context, userID uuid.UUID) (int, error)
}

// ActivityRepository is the append-only audit trail.
type ActivityRepository interface {
	Append(ctx context.Context, record domain.LoginActivityRecord) error
	CountSince(ctx context.Context, userID uuid.UUID, kind domain.ActivityKind, since time.Time) (int, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.LoginActivityRecord, error)
}

// RecoveryRepository owns password/email token lifecycle.
// Separate methods for create/consume keep one-time-token invariants explicit.
type RecoveryRepository interface {
	CreatePasswordResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, createdAt, expiresAt time.Time) error
	ConsumePasswordResetToken(ctx context.Context, tokenHash string, usedAt time.Time) (uuid.UUID, error)
	CreateEmailVerificationToken(ctx context.Context, userID uuid.UUID, tokenHash string, createdAt, expiresAt time.Time) error
	ConsumeEmailVerificationToken(ctx context.Context, tokenHash string, verifiedAt time.Time) (uuid.UUID, error)
}

// OutboxEvent is the write-side event payload prior to storage.
// It is adapter-neutral to keep application code independent of broker specifics.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls publish-retry workflow for security events.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
