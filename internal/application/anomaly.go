package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

const earthRadiusKm = 6371.0

// AnomalyPolicy holds the thresholds of the login heuristics.
type AnomalyPolicy struct {
	MaxTravelKm          float64
	TravelWindow         time.Duration
	FailedLoginThreshold int
	FailedLoginWindow    time.Duration
	// OffHours is nil when unset, which selects 00..04 UTC.
	OffHours *HourWindow
}

// HourWindow is an inclusive range of UTC hours. Start > End wraps past midnight.
type HourWindow struct {
	Start int
	End   int
}

func (w HourWindow) Contains(hour int) bool {
	if w.Start <= w.End {
		return hour >= w.Start && hour <= w.End
	}
	return hour >= w.Start || hour <= w.End
}

func (p AnomalyPolicy) withDefaults() AnomalyPolicy {
	if p.MaxTravelKm <= 0 {
		p.MaxTravelKm = 500
	}
	if p.TravelWindow <= 0 {
		p.TravelWindow = time.Hour
	}
	if p.FailedLoginThreshold <= 0 {
		p.FailedLoginThreshold = 5
	}
	if p.FailedLoginWindow <= 0 {
		p.FailedLoginWindow = time.Hour
	}
	if p.OffHours == nil {
		p.OffHours = &HourWindow{Start: 0, End: 4}
	}
	return p
}

// LoginEvent is the input of one evaluation.
type LoginEvent struct {
	IPAddress string
	At        time.Time
	// Location is nil when the IP could not be resolved.
	Location *domain.Location
	// Previous is where the device was last seen before this login, nil for a new device.
	Previous *domain.DeviceSighting
}

// Assessment is the outcome of evaluating one login.
type Assessment struct {
	Warnings            []domain.Warning
	RequireSecondFactor bool
}

// RiskWarnings drops degraded-evaluation markers and keeps the real signals.
func (a Assessment) RiskWarnings() []domain.Warning {
	out := make([]domain.Warning, 0, len(a.Warnings))
	for _, w := range a.Warnings {
		if w.IsRisk() {
			out = append(out, w)
		}
	}
	return out
}

// AnomalyDetector scores a login against device history and recent activity.
type AnomalyDetector struct {
	policy     AnomalyPolicy
	activities ports.ActivityRepository
	devices    *DeviceTrustManager
	nowFn      func() time.Time
}

func NewAnomalyDetector(policy AnomalyPolicy, activities ports.ActivityRepository, devices *DeviceTrustManager) *AnomalyDetector {
	return &AnomalyDetector{
		policy:     policy.withDefaults(),
		activities: activities,
		devices:    devices,
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
}

func (d *AnomalyDetector) withClock(nowFn func() time.Time) *AnomalyDetector {
	d.nowFn = nowFn
	return d
}

// Evaluate runs every heuristic; one firing never hides another.
// device is updated in place when its suspicious counter moves.
func (d *AnomalyDetector) Evaluate(ctx context.Context, userID uuid.UUID, event LoginEvent, device *domain.Device) (Assessment, error) {
	at := event.At
	if at.IsZero() {
		at = d.nowFn()
	}
	at = at.UTC()

	var (
		warnings []domain.Warning
		errs     []error
	)

	if w, err := d.geoVelocity(ctx, event, at, device); err != nil {
		errs = append(errs, err)
	} else if w != nil {
		warnings = append(warnings, *w)
	}

	if w, err := d.bruteForce(ctx, userID, at); err != nil {
		errs = append(errs, err)
	} else if w != nil {
		warnings = append(warnings, *w)
	}

	if w := d.offHours(at); w != nil {
		warnings = append(warnings, *w)
	}

	assessment := Assessment{
		Warnings:            warnings,
		RequireSecondFactor: device != nil && !device.Trusted && device.SuspiciousCount > 0,
	}
	if len(errs) > 0 {
		return assessment, errors.Join(errs...)
	}
	return assessment, nil
}

func (d *AnomalyDetector) geoVelocity(ctx context.Context, event LoginEvent, at time.Time, device *domain.Device) (*domain.Warning, error) {
	if event.Location == nil {
		return &domain.Warning{
			Kind:    domain.WarningGeoUnavailable,
			Message: "location could not be resolved; travel check skipped",
		}, nil
	}
	prev := event.Previous
	if prev == nil || prev.Location == nil || device == nil {
		return nil, nil
	}

	distance := HaversineKm(prev.Location.Latitude, prev.Location.Longitude, event.Location.Latitude, event.Location.Longitude)
	elapsed := at.Sub(prev.SeenAt)
	if distance <= d.policy.MaxTravelKm || elapsed < 0 || elapsed >= d.policy.TravelWindow {
		return nil, nil
	}

	if err := d.devices.RecordSuspicious(ctx, device); err != nil {
		return nil, fmt.Errorf("record suspicious device: %w", err)
	}
	return &domain.Warning{
		Kind:    domain.WarningImpossibleTravel,
		Message: fmt.Sprintf("login %.0f km from previous location after %s", distance, elapsed.Round(time.Minute)),
	}, nil
}

func (d *AnomalyDetector) bruteForce(ctx context.Context, userID uuid.UUID, at time.Time) (*domain.Warning, error) {
	failed, err := d.activities.CountSince(ctx, userID, domain.ActivityLoginFailed, at.Add(-d.policy.FailedLoginWindow))
	if err != nil {
		return nil, fmt.Errorf("count failed logins: %w", err)
	}
	if failed < d.policy.FailedLoginThreshold {
		return nil, nil
	}
	return &domain.Warning{
		Kind:    domain.WarningBruteForceSuspected,
		Message: fmt.Sprintf("%d failed login attempts in the last %s", failed, d.policy.FailedLoginWindow),
	}, nil
}

func (d *AnomalyDetector) offHours(at time.Time) *domain.Warning {
	hour := at.Hour()
	if !d.policy.OffHours.Contains(hour) {
		return nil
	}
	return &domain.Warning{
		Kind:    domain.WarningOffHoursLogin,
		Message: fmt.Sprintf("login at %02d:00 UTC", hour),
	}
}

// HaversineKm is the great-circle distance between two coordinates.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
