package domain

// WarningKind is the closed set of anomaly signals.
type WarningKind string

const (
	WarningImpossibleTravel    WarningKind = "IMPOSSIBLE_TRAVEL"
	WarningBruteForceSuspected WarningKind = "BRUTE_FORCE_SUSPECTED"
	WarningOffHoursLogin       WarningKind = "OFF_HOURS_LOGIN"
	// WarningGeoUnavailable marks a degraded evaluation, not a risk signal.
	WarningGeoUnavailable WarningKind = "GEO_UNAVAILABLE"
)

// Warning is one anomaly found while evaluating a login.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// IsRisk reports whether the warning should raise a security alert.
func (w Warning) IsRisk() bool {
	return w.Kind != WarningGeoUnavailable
}

// AlertKind is the closed set of security notifications.
type AlertKind string

const (
	AlertSuspiciousActivity AlertKind = "suspicious_activity"
	AlertNewDevice          AlertKind = "new_device"
	AlertPasswordChanged    AlertKind = "password_changed"
	AlertTwoFactorDisabled  AlertKind = "two_factor_disabled"
)
