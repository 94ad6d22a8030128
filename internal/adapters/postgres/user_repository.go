package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) CreateWithOutboxTx(ctx context.Context, params ports.CreateUserParams, outboxEvent ports.OutboxEvent) (domain.User, error) {
	var result domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role roleModel
		if err := tx.Where("name = ?", string(params.Role)).Take(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, params.Role)
			}
			return err
		}

		rec := userModel{
			Email:         params.Email,
			FullName:      params.FullName,
			PasswordHash:  params.PasswordHash,
			RoleID:        role.RoleID,
			EmailVerified: params.EmailVerified,
			IsActive:      true,
			CreatedAt:     params.RegisteredAt,
			UpdatedAt:     params.RegisteredAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}

		history := passwordHistoryModel{
			UserID:       rec.UserID,
			PasswordHash: params.PasswordHash,
			CreatedAt:    params.RegisteredAt,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		outbox := securityOutboxModel{
			OutboxID:     outboxEvent.EventID,
			EventType:    outboxEvent.EventType,
			PartitionKey: rec.UserID.String(),
			Payload:      string(stampUserID(outboxEvent.Payload, rec.UserID)),
			CreatedAt:    outboxEvent.OccurredAt,
		}
		if err := tx.Create(&outbox).Error; err != nil {
			return err
		}

		result = toDomainUser(rec, role.Name)
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return result, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *userRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	return r.findOne(ctx, "user_id = ?", userID)
}

func (r *userRepository) findOne(ctx context.Context, where string, arg any) (domain.User, error) {
	db := r.db.WithContext(ctx)
	var rec userModel
	if err := db.Where(where, arg).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	var role roleModel
	if err := db.Where("role_id = ?", rec.RoleID).Take(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, fmt.Errorf("role %s missing for user %s", rec.RoleID, rec.UserID)
		}
		return domain.User{}, err
	}
	return toDomainUser(rec, role.Name), nil
}
