package domain

import (
	"time"

	"github.com/google/uuid"
)

// Location is an approximate position resolved from a client IP.
type Location struct {
	City      string  `json:"city"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Device is a recognised (user, user-agent, network) tuple.
// DeviceID is derived, never assigned, so re-observing the same tuple lands on the same record.
type Device struct {
	DeviceID        string
	UserID          uuid.UUID
	DisplayName     string
	FingerprintHash string
	UserAgent       string
	LastIP          string
	Location        *Location
	Trusted         bool
	SuspiciousCount int
	CreatedAt       time.Time
	LastUsedAt      time.Time
}

// DeviceSighting is the state of a device as recorded by its previous login.
type DeviceSighting struct {
	IP       string
	Location *Location
	SeenAt   time.Time
}
