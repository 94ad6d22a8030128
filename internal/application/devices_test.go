package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
)

func TestDeviceUpsertIsIdempotentAndKeepsTrust(t *testing.T) {
	t.Parallel()

	repo := &fakeDevices{items: make(map[string]domain.Device)}
	manager := NewDeviceTrustManager(repo, stripSanitizer{})
	ctx := context.Background()
	userID := uuid.New()
	identity := NewDeviceFingerprinter().Identify(ConnectionMetadata{
		UserID:    userID,
		IPAddress: "203.0.113.7",
		UserAgent: chromeOnLinux,
	})
	at := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	first, err := manager.Upsert(ctx, userID, identity, DeviceObservation{IPAddress: "203.0.113.7", UserAgent: chromeOnLinux, At: at})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !first.Created || first.Previous != nil {
		t.Fatalf("first sighting should create the device, got %+v", first)
	}

	if err := manager.SetTrusted(ctx, identity.DeviceID, userID); err != nil {
		t.Fatalf("trust: %v", err)
	}

	second, err := manager.Upsert(ctx, userID, identity, DeviceObservation{IPAddress: "203.0.113.7", UserAgent: chromeOnLinux, At: at.Add(time.Hour)})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.Created || second.Previous == nil || !second.Previous.SeenAt.Equal(at) {
		t.Fatalf("second sighting should report the previous one, got %+v", second)
	}
	if !second.Device.Trusted {
		t.Fatalf("trust must survive re-observation")
	}
	devices, _ := manager.ListDevices(ctx, userID)
	if len(devices) != 1 {
		t.Fatalf("expected exactly one device record, got %d", len(devices))
	}
	if !devices[0].LastUsedAt.Equal(at.Add(time.Hour)) {
		t.Fatalf("last used should move forward, got %s", devices[0].LastUsedAt)
	}
}

func TestDeviceUpsertSanitizesClientText(t *testing.T) {
	t.Parallel()

	repo := &fakeDevices{items: make(map[string]domain.Device)}
	manager := NewDeviceTrustManager(repo, stripSanitizer{})
	userID := uuid.New()

	res, err := manager.Upsert(context.Background(), userID, DeviceIdentity{DeviceID: "dev-1", DisplayName: "<script>x"}, DeviceObservation{
		UserAgent: "<img src=x>",
		At:        time.Now(),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if strings.ContainsAny(res.Device.DisplayName+res.Device.UserAgent, "<>") {
		t.Fatalf("markup should be stripped, got %+v", res.Device)
	}
}

func TestDeviceOwnershipIsEnforced(t *testing.T) {
	t.Parallel()

	repo := &fakeDevices{items: make(map[string]domain.Device)}
	manager := NewDeviceTrustManager(repo, nil)
	ctx := context.Background()
	owner := uuid.New()

	if _, err := manager.Upsert(ctx, owner, DeviceIdentity{DeviceID: "dev-1"}, DeviceObservation{At: time.Now()}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := manager.SetTrusted(ctx, "dev-1", uuid.New()); !errors.Is(err, domain.ErrDeviceNotFound) {
		t.Fatalf("foreign trust should look like not found, got %v", err)
	}
	if err := manager.Remove(ctx, "dev-1", uuid.New()); !errors.Is(err, domain.ErrDeviceNotFound) {
		t.Fatalf("foreign remove should look like not found, got %v", err)
	}
	if err := manager.Remove(ctx, "dev-1", owner); err != nil {
		t.Fatalf("owner remove: %v", err)
	}
}
