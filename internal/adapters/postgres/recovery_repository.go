package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"gorm.io/gorm"
)

// oneTimeTokenTable describes a table of hashed single-use tokens.
// consumedColumn is NULL until the token is spent or superseded.
type oneTimeTokenTable struct {
	name           string
	consumedColumn string
}

var (
	passwordResetTokens     = oneTimeTokenTable{name: "password_reset_tokens", consumedColumn: "used_at"}
	emailVerificationTokens = oneTimeTokenTable{name: "email_verification_tokens", consumedColumn: "verified_at"}
)

type recoveryRepository struct {
	db *gorm.DB
}

func (r *recoveryRepository) CreatePasswordResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, createdAt, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := passwordResetTokens.supersede(tx, userID, createdAt); err != nil {
			return err
		}
		return tx.Create(&passwordResetTokenModel{
			UserID:    userID,
			TokenHash: tokenHash,
			CreatedAt: createdAt,
			ExpiresAt: expiresAt,
		}).Error
	})
}

func (r *recoveryRepository) ConsumePasswordResetToken(ctx context.Context, tokenHash string, usedAt time.Time) (uuid.UUID, error) {
	return passwordResetTokens.consume(r.db.WithContext(ctx), tokenHash, usedAt)
}

func (r *recoveryRepository) CreateEmailVerificationToken(ctx context.Context, userID uuid.UUID, tokenHash string, createdAt, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := emailVerificationTokens.supersede(tx, userID, createdAt); err != nil {
			return err
		}
		return tx.Create(&emailVerificationTokenModel{
			UserID:    userID,
			TokenHash: tokenHash,
			CreatedAt: createdAt,
			ExpiresAt: expiresAt,
		}).Error
	})
}

func (r *recoveryRepository) ConsumeEmailVerificationToken(ctx context.Context, tokenHash string, verifiedAt time.Time) (uuid.UUID, error) {
	return emailVerificationTokens.consume(r.db.WithContext(ctx), tokenHash, verifiedAt)
}

// supersede retires every outstanding token of the user so only the newest link works.
func (t oneTimeTokenTable) supersede(tx *gorm.DB, userID uuid.UUID, at time.Time) error {
	return tx.Exec(
		"UPDATE "+t.name+" SET "+t.consumedColumn+" = ? WHERE user_id = ? AND "+t.consumedColumn+" IS NULL",
		at, userID,
	).Error
}

// consume spends a live token in a single statement; of two concurrent
// callers presenting the same token only one gets a row back.
func (t oneTimeTokenTable) consume(db *gorm.DB, tokenHash string, at time.Time) (uuid.UUID, error) {
	var row struct {
		UserID uuid.UUID `gorm:"column:user_id"`
	}
	res := db.Raw(
		"UPDATE "+t.name+" SET "+t.consumedColumn+" = ? "+
			"WHERE token_hash = ? AND "+t.consumedColumn+" IS NULL AND expires_at > ? "+
			"RETURNING user_id",
		at, tokenHash, at,
	).Scan(&row)
	if res.Error != nil {
		return uuid.Nil, res.Error
	}
	if res.RowsAffected == 0 {
		return uuid.Nil, domain.ErrNotFound
	}
	return row.UserID, nil
}
