package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

// DeviceObservation is what one login saw of a device.
type DeviceObservation struct {
	IPAddress string
	UserAgent string
	// Location is nil when geolocation was unavailable; the stored location is then kept.
	Location *domain.Location
	At       time.Time
}

// DeviceUpsertResult is the device after recording a login plus what it looked like before.
type DeviceUpsertResult struct {
	Device   domain.Device
	Previous *domain.DeviceSighting
	Created  bool
}

// DeviceTrustManager is the only writer of device records.
type DeviceTrustManager struct {
	devices   ports.DeviceRepository
	sanitizer ports.TextSanitizer
}

func NewDeviceTrustManager(devices ports.DeviceRepository, sanitizer ports.TextSanitizer) *DeviceTrustManager {
	return &DeviceTrustManager{devices: devices, sanitizer: sanitizer}
}

// Upsert records a login from identity. Trust and the suspicious counter survive re-observation.
func (m *DeviceTrustManager) Upsert(ctx context.Context, userID uuid.UUID, identity DeviceIdentity, obs DeviceObservation) (DeviceUpsertResult, error) {
	if identity.DeviceID == "" {
		return DeviceUpsertResult{}, fmt.Errorf("%w: device id is required", domain.ErrInvalidInput)
	}
	candidate := domain.Device{
		DeviceID:        identity.DeviceID,
		UserID:          userID,
		DisplayName:     m.clean(identity.DisplayName),
		FingerprintHash: identity.FingerprintHash,
		UserAgent:       m.clean(obs.UserAgent),
		LastIP:          obs.IPAddress,
		Location:        obs.Location,
		CreatedAt:       obs.At,
		LastUsedAt:      obs.At,
	}
	device, previous, err := m.devices.Upsert(ctx, candidate)
	if err != nil {
		return DeviceUpsertResult{}, fmt.Errorf("upsert device: %w", err)
	}
	return DeviceUpsertResult{Device: device, Previous: previous, Created: previous == nil}, nil
}

func (m *DeviceTrustManager) ListDevices(ctx context.Context, userID uuid.UUID) ([]domain.Device, error) {
	return m.devices.ListByUser(ctx, userID)
}

// SetTrusted marks a device as trusted. Devices of other users are reported as not found.
func (m *DeviceTrustManager) SetTrusted(ctx context.Context, deviceID string, userID uuid.UUID) error {
	return mapDeviceErr(m.devices.SetTrusted(ctx, deviceID, userID, true))
}

// Remove deletes a device. Devices of other users are reported as not found.
func (m *DeviceTrustManager) Remove(ctx context.Context, deviceID string, userID uuid.UUID) error {
	return mapDeviceErr(m.devices.Delete(ctx, deviceID, userID))
}

// RecordSuspicious bumps the device's suspicious counter by one and mirrors it onto device.
func (m *DeviceTrustManager) RecordSuspicious(ctx context.Context, device *domain.Device) error {
	count, err := m.devices.IncrementSuspicious(ctx, device.DeviceID)
	if err != nil {
		return mapDeviceErr(err)
	}
	device.SuspiciousCount = count
	return nil
}

func (m *DeviceTrustManager) clean(input string) string {
	if m.sanitizer == nil {
		return input
	}
	return m.sanitizer.Sanitize(input)
}

func mapDeviceErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrDeviceNotFound
	}
	return err
}
