package application

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
)

const (
	defaultActivityPageSize = 20
	maxActivityPageSize     = 100
	recentActivityCount     = 10
	manyDevicesThreshold    = 5
)

func (s *Service) ListDevices(ctx context.Context, principal Principal) ([]DeviceView, error) {
	devices, err := s.devices.ListDevices(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	out := make([]DeviceView, 0, len(devices))
	for _, d := range devices {
		out = append(out, toDeviceView(d))
	}
	return out, nil
}

// TrustDevice marks one of the caller's devices as trusted.
func (s *Service) TrustDevice(ctx context.Context, principal Principal, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return fmt.Errorf("%w: device id is required", domain.ErrInvalidInput)
	}
	if err := s.devices.SetTrusted(ctx, deviceID, principal.UserID); err != nil {
		return err
	}
	s.recordActivity(ctx, principal.UserID, domain.ActivityDeviceTrusted, "Device trusted: "+deviceID, "", "")
	return nil
}

// RemoveDevice forgets one of the caller's devices. Its next login is treated as new.
func (s *Service) RemoveDevice(ctx context.Context, principal Principal, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return fmt.Errorf("%w: device id is required", domain.ErrInvalidInput)
	}
	if err := s.devices.Remove(ctx, deviceID, principal.UserID); err != nil {
		return err
	}
	s.recordActivity(ctx, principal.UserID, domain.ActivityDeviceRemoved, "Device removed: "+deviceID, "", "")
	return nil
}

// ActivityHistory pages through the caller's audit trail, newest first.
func (s *Service) ActivityHistory(ctx context.Context, principal Principal, query ActivityQuery) ([]ActivityView, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultActivityPageSize
	}
	if limit > maxActivityPageSize {
		limit = maxActivityPageSize
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}

	records, err := s.activities.ListByUser(ctx, principal.UserID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	out := make([]ActivityView, 0, len(records))
	for _, rec := range records {
		out = append(out, toActivityView(rec))
	}
	return out, nil
}

// SecurityStatus summarises the caller's account posture.
func (s *Service) SecurityStatus(ctx context.Context, principal Principal) (SecurityStatus, error) {
	var (
		devices  []domain.Device
		tfa      TwoFactorStatus
		activity []domain.LoginActivityRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		devices, err = s.devices.ListDevices(gctx, principal.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		tfa, err = s.twoFactor.Status(gctx, principal.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		activity, err = s.activities.ListByUser(gctx, principal.UserID, recentActivityCount, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return SecurityStatus{}, fmt.Errorf("load security status: %w", err)
	}

	status := SecurityStatus{
		TwoFactorEnabled:     tfa.State == domain.TwoFactorEnabled,
		BackupCodesRemaining: tfa.BackupCodesRemaining,
		DeviceCount:          len(devices),
		RecentActivity:       make([]ActivityView, 0, len(activity)),
	}
	for _, d := range devices {
		if d.Trusted {
			status.TrustedDevices++
		}
		if d.SuspiciousCount > 0 {
			status.SuspiciousDevices++
		}
	}
	for _, rec := range activity {
		status.RecentActivity = append(status.RecentActivity, toActivityView(rec))
	}
	status.SecurityScore = securityScore(status)
	return status, nil
}

func securityScore(status SecurityStatus) int {
	score := 50
	if status.TwoFactorEnabled {
		score += 20
	}
	if status.TrustedDevices > 0 {
		score += 10
	}
	if status.DeviceCount < manyDevicesThreshold {
		score += 10
	}
	if status.SuspiciousDevices == 0 {
		score += 10
	}
	return min(score, 100)
}
