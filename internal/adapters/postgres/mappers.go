package postgres

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
	"gorm.io/gorm"
)

func toDomainUser(row userModel, roleName string) domain.User {
	return domain.User{
		UserID:        row.UserID,
		Email:         row.Email,
		FullName:      row.FullName,
		PasswordHash:  row.PasswordHash,
		Role:          domain.Role(roleName),
		EmailVerified: row.EmailVerified,
		IsActive:      row.IsActive,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func toDomainDevice(row deviceModel) domain.Device {
	return domain.Device{
		DeviceID:        row.DeviceID,
		UserID:          row.UserID,
		DisplayName:     row.DisplayName,
		FingerprintHash: row.FingerprintHash,
		UserAgent:       row.UserAgent,
		LastIP:          derefString(row.LastIP),
		Location:        decodeLocation(row.Location),
		Trusted:         row.Trusted,
		SuspiciousCount: row.SuspiciousCount,
		CreatedAt:       row.CreatedAt,
		LastUsedAt:      row.LastUsedAt,
	}
}

// toSighting captures the row as the previous sighting before it is overwritten.
func toSighting(row deviceModel) *domain.DeviceSighting {
	return &domain.DeviceSighting{
		IP:       derefString(row.LastIP),
		Location: decodeLocation(row.Location),
		SeenAt:   row.LastUsedAt,
	}
}

func toDomainActivity(row loginActivityModel) domain.LoginActivityRecord {
	return domain.LoginActivityRecord{
		ID:          row.ID,
		UserID:      row.UserID,
		Kind:        domain.ActivityKind(row.Kind),
		Description: row.Description,
		IPAddress:   derefString(row.IPAddress),
		UserAgent:   row.UserAgent,
		CreatedAt:   row.CreatedAt,
	}
}

func encodeLocation(loc *domain.Location) *string {
	if loc == nil {
		return nil
	}
	raw, err := json.Marshal(loc)
	if err != nil {
		return nil
	}
	out := string(raw)
	return &out
}

// decodeLocation treats an unreadable column as unknown rather than failing the read.
func decodeLocation(raw *string) *domain.Location {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	var loc domain.Location
	if err := json.Unmarshal([]byte(*raw), &loc); err != nil {
		return nil
	}
	return &loc
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func toOutboxRecord(row securityOutboxModel) ports.OutboxRecord {
	return ports.OutboxRecord{
		OutboxID:       row.OutboxID,
		EventType:      row.EventType,
		PartitionKey:   row.PartitionKey,
		Payload:        []byte(row.Payload),
		RetryCount:     row.RetryCount,
		LastError:      row.LastError,
		CreatedAt:      row.CreatedAt,
		PublishedAt:    row.PublishedAt,
		LastErrorAt:    row.LastErrorAt,
		ClaimToken:     row.ClaimToken,
		ClaimUntil:     row.ClaimUntil,
		DeadLetteredAt: row.DeadLetteredAt,
	}
}

// stampUserID adds user_id to a JSON object payload. The id only exists after
// the user row is inserted. Non-object payloads pass through untouched.
func stampUserID(payload []byte, userID uuid.UUID) []byte {
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil || obj == nil {
		return payload
	}
	obj["user_id"] = userID.String()
	stamped, err := json.Marshal(obj)
	if err != nil {
		return payload
	}
	return stamped
}
