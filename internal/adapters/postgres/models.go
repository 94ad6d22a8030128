package postgres

import (
	"time"

	"github.com/google/uuid"
)

type roleModel struct {
	RoleID    uuid.UUID `gorm:"column:role_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (roleModel) TableName() string { return "roles" }

type userModel struct {
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email         string    `gorm:"column:email"`
	FullName      string    `gorm:"column:full_name"`
	PasswordHash  string    `gorm:"column:password_hash"`
	RoleID        uuid.UUID `gorm:"column:role_id"`
	EmailVerified bool      `gorm:"column:email_verified"`
	IsActive      bool      `gorm:"column:is_active"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type passwordHistoryModel struct {
	ID           int64     `gorm:"column:id;primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id"`
	PasswordHash string    `gorm:"column:password_hash"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (passwordHistoryModel) TableName() string { return "password_history" }

type deviceModel struct {
	DeviceID        string    `gorm:"column:device_id;primaryKey"`
	UserID          uuid.UUID `gorm:"column:user_id"`
	DisplayName     string    `gorm:"column:display_name"`
	FingerprintHash string    `gorm:"column:fingerprint_hash"`
	UserAgent       string    `gorm:"column:user_agent"`
	LastIP          *string   `gorm:"column:last_ip"`
	Location        *string   `gorm:"column:location;type:jsonb"`
	Trusted         bool      `gorm:"column:trusted"`
	SuspiciousCount int       `gorm:"column:suspicious_count"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	LastUsedAt      time.Time `gorm:"column:last_used_at"`
}

func (deviceModel) TableName() string { return "devices" }

type twoFactorCredentialModel struct {
	UserID       uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey"`
	SecretSealed []byte     `gorm:"column:secret_sealed"`
	Enabled      bool       `gorm:"column:enabled"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	EnabledAt    *time.Time `gorm:"column:enabled_at"`
}

func (twoFactorCredentialModel) TableName() string { return "two_factor_credentials" }

type backupCodeModel struct {
	BackupCodeID uuid.UUID `gorm:"column:backup_code_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id"`
	CodeHash     string    `gorm:"column:code_hash"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (backupCodeModel) TableName() string { return "two_factor_backup_codes" }

type loginActivityModel struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id"`
	Kind        string    `gorm:"column:kind"`
	Description string    `gorm:"column:description"`
	IPAddress   *string   `gorm:"column:ip_address"`
	UserAgent   string    `gorm:"column:user_agent"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (loginActivityModel) TableName() string { return "login_activities" }

type securityOutboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (securityOutboxModel) TableName() string { return "security_outbox" }

type passwordResetTokenModel struct {
	TokenID   uuid.UUID  `gorm:"column:token_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id"`
	TokenHash string     `gorm:"column:token_hash"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	ExpiresAt time.Time  `gorm:"column:expires_at"`
	UsedAt    *time.Time `gorm:"column:used_at"`
}

func (passwordResetTokenModel) TableName() string { return "password_reset_tokens" }

type emailVerificationTokenModel struct {
	TokenID    uuid.UUID  `gorm:"column:token_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID  `gorm:"column:user_id"`
	TokenHash  string     `gorm:"column:token_hash"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	ExpiresAt  time.Time  `gorm:"column:expires_at"`
	VerifiedAt *time.Time `gorm:"column:verified_at"`
}

func (emailVerificationTokenModel) TableName() string { return "email_verification_tokens" }
