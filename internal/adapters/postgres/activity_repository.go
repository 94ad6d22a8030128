package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"gorm.io/gorm"
)

type activityRepository struct {
	db *gorm.DB
}

func (r *activityRepository) Append(ctx context.Context, record domain.LoginActivityRecord) error {
	rec := loginActivityModel{
		UserID:      record.UserID,
		Kind:        string(record.Kind),
		Description: record.Description,
		IPAddress:   nullableString(record.IPAddress),
		UserAgent:   record.UserAgent,
		CreatedAt:   record.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *activityRepository) CountSince(ctx context.Context, userID uuid.UUID, kind domain.ActivityKind, since time.Time) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&loginActivityModel{}).
		Where("user_id = ?", userID).
		Where("kind = ?", string(kind)).
		Where("created_at >= ?", since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *activityRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.LoginActivityRecord, error) {
	var rows []loginActivityModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.LoginActivityRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainActivity(row))
	}
	return out, nil
}
