package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"gorm.io/gorm"
)

type credentialRepository struct {
	db *gorm.DB
}

func (r *credentialRepository) RecentPasswordHashes(ctx context.Context, userID uuid.UUID, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	var hashes []string
	if err := r.db.WithContext(ctx).
		Model(&passwordHistoryModel{}).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Pluck("password_hash", &hashes).Error; err != nil {
		return nil, err
	}
	return hashes, nil
}

func (r *credentialRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string, keep int, updatedAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userModel{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"password_hash": passwordHash,
				"updated_at":    updatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		entry := passwordHistoryModel{
			UserID:       userID,
			PasswordHash: passwordHash,
			CreatedAt:    updatedAt,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		if keep <= 0 {
			return nil
		}

		newest := tx.Model(&passwordHistoryModel{}).
			Select("id").
			Where("user_id = ?", userID).
			Order("created_at DESC, id DESC").
			Limit(keep)
		return tx.Where("user_id = ?", userID).
			Where("id NOT IN (?)", newest).
			Delete(&passwordHistoryModel{}).Error
	})
}

func (r *credentialRepository) SetEmailVerified(ctx context.Context, userID uuid.UUID, verified bool, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"email_verified": verified,
			"updated_at":     updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
