package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type twoFactorRepository struct {
	db     *gorm.DB
	sealer SecretSealer
}

func (r *twoFactorRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.TwoFactorCredential, error) {
	var rec twoFactorCredentialModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	secret, err := r.sealer.Open(rec.SecretSealed)
	if err != nil {
		return nil, fmt.Errorf("open totp secret: %w", err)
	}
	return &domain.TwoFactorCredential{
		UserID:    rec.UserID,
		Secret:    string(secret),
		Enabled:   rec.Enabled,
		CreatedAt: rec.CreatedAt,
		EnabledAt: rec.EnabledAt,
	}, nil
}

func (r *twoFactorRepository) SavePending(ctx context.Context, cred domain.TwoFactorCredential, backupCodeHashes []string) error {
	sealed, err := r.sealer.Seal([]byte(cred.Secret))
	if err != nil {
		return fmt.Errorf("seal totp secret: %w", err)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := twoFactorCredentialModel{
			UserID:       cred.UserID,
			SecretSealed: sealed,
			Enabled:      false,
			CreatedAt:    cred.CreatedAt,
		}
		// An enabled credential is never overwritten here; disabling goes through Delete.
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"secret_sealed": sealed,
				"created_at":    cred.CreatedAt,
				"enabled_at":    nil,
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "two_factor_credentials.enabled = ?", Vars: []any{false}},
			}},
		}).Create(&rec)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrTwoFactorAlreadyEnabled
		}

		if err := tx.Where("user_id = ?", cred.UserID).Delete(&backupCodeModel{}).Error; err != nil {
			return err
		}
		if len(backupCodeHashes) == 0 {
			return nil
		}
		codes := make([]backupCodeModel, 0, len(backupCodeHashes))
		for _, hash := range backupCodeHashes {
			codes = append(codes, backupCodeModel{
				UserID:    cred.UserID,
				CodeHash:  hash,
				CreatedAt: cred.CreatedAt,
			})
		}
		return tx.Create(&codes).Error
	})
}

func (r *twoFactorRepository) Enable(ctx context.Context, userID uuid.UUID, enabledAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&twoFactorCredentialModel{}).
		Where("user_id = ?", userID).
		Where("enabled = ?", false).
		Updates(map[string]any{
			"enabled":    true,
			"enabled_at": enabledAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *twoFactorRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&backupCodeModel{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&twoFactorCredentialModel{}).Error
	})
}

// ConsumeBackupCode relies on the row delete being atomic: of two concurrent
// callers presenting the same code only one sees a removed row.
func (r *twoFactorRepository) ConsumeBackupCode(ctx context.Context, userID uuid.UUID, codeHash string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("code_hash = ?", codeHash).
		Delete(&backupCodeModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *twoFactorRepository) CountBackupCodes(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&backupCodeModel{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}
