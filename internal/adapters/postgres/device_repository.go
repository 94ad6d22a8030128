package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type deviceRepository struct {
	db *gorm.DB
}

// Upsert locks the device row so concurrent logins from the same device
// each see the sighting the other one left behind.
func (r *deviceRepository) Upsert(ctx context.Context, device domain.Device) (domain.Device, *domain.DeviceSighting, error) {
	var (
		result   domain.Device
		previous *domain.DeviceSighting
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing deviceModel
		err := lockDevice(tx, device.DeviceID, &existing)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			rec := deviceModel{
				DeviceID:        device.DeviceID,
				UserID:          device.UserID,
				DisplayName:     device.DisplayName,
				FingerprintHash: device.FingerprintHash,
				UserAgent:       device.UserAgent,
				LastIP:          nullableString(device.LastIP),
				Location:        encodeLocation(device.Location),
				CreatedAt:       device.LastUsedAt,
				LastUsedAt:      device.LastUsedAt,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				result = toDomainDevice(rec)
				return nil
			}
			// Lost the insert race; fall through to update the winner's row.
			err = lockDevice(tx, device.DeviceID, &existing)
		}
		if err != nil {
			return err
		}
		if existing.UserID != device.UserID {
			return domain.ErrDeviceNotFound
		}

		previous = toSighting(existing)
		updates := map[string]any{
			"display_name":     device.DisplayName,
			"fingerprint_hash": device.FingerprintHash,
			"user_agent":       device.UserAgent,
			"last_ip":          nullableString(device.LastIP),
			"last_used_at":     device.LastUsedAt,
		}
		if device.Location != nil {
			updates["location"] = encodeLocation(device.Location)
		}
		if err := tx.Model(&deviceModel{}).
			Where("device_id = ?", device.DeviceID).
			Updates(updates).Error; err != nil {
			return err
		}
		var updated deviceModel
		if err := tx.Where("device_id = ?", device.DeviceID).Take(&updated).Error; err != nil {
			return err
		}
		result = toDomainDevice(updated)
		return nil
	})
	if err != nil {
		return domain.Device{}, nil, err
	}
	return result, previous, nil
}

func lockDevice(tx *gorm.DB, deviceID string, dst *deviceModel) error {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("device_id = ?", deviceID).
		Take(dst).Error
}

func (r *deviceRepository) GetByID(ctx context.Context, deviceID string) (domain.Device, error) {
	var rec deviceModel
	if err := r.db.WithContext(ctx).Where("device_id = ?", deviceID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Device{}, domain.ErrDeviceNotFound
		}
		return domain.Device{}, err
	}
	return toDomainDevice(rec), nil
}

func (r *deviceRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Device, error) {
	var rows []deviceModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_used_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Device, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainDevice(row))
	}
	return out, nil
}

func (r *deviceRepository) SetTrusted(ctx context.Context, deviceID string, userID uuid.UUID, trusted bool) error {
	res := r.db.WithContext(ctx).
		Model(&deviceModel{}).
		Where("device_id = ?", deviceID).
		Where("user_id = ?", userID).
		Update("trusted", trusted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *deviceRepository) Delete(ctx context.Context, deviceID string, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Where("user_id = ?", userID).
		Delete(&deviceModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *deviceRepository) IncrementSuspicious(ctx context.Context, deviceID string) (int, error) {
	var count int
	res := r.db.WithContext(ctx).
		Raw("UPDATE devices SET suspicious_count = suspicious_count + 1 WHERE device_id = ? RETURNING suspicious_count", deviceID).
		Scan(&count)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, domain.ErrNotFound
	}
	return count, nil
}
