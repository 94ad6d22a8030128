package application

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
)

// fingerprintHeaders are the passive attributes folded into the browser fingerprint.
var fingerprintHeaders = []string{
	"user-agent",
	"accept-language",
	"accept-encoding",
	"accept",
	"connection",
	"dnt",
	"sec-ch-ua",
	"sec-ch-ua-platform",
	"sec-ch-ua-mobile",
}

// ConnectionMetadata is what the transport knows about the client of one request.
// Header names are matched case-insensitively.
type ConnectionMetadata struct {
	UserID    uuid.UUID
	IPAddress string
	UserAgent string
	Headers   map[string]string
}

// DeviceIdentity is the derived identity of a connecting client.
type DeviceIdentity struct {
	DeviceID        string
	FingerprintHash string
	DisplayName     string
}

// DeviceFingerprinter derives stable device identifiers from connection metadata.
// It holds no state: identical input always yields identical output.
type DeviceFingerprinter struct{}

func NewDeviceFingerprinter() *DeviceFingerprinter {
	return &DeviceFingerprinter{}
}

func (f *DeviceFingerprinter) Identify(meta ConnectionMetadata) DeviceIdentity {
	deviceSum := sha256.Sum256([]byte(meta.UserID.String() + ":" + meta.UserAgent + ":" + meta.IPAddress))
	return DeviceIdentity{
		DeviceID:        hex.EncodeToString(deviceSum[:]),
		FingerprintHash: fingerprintHash(meta),
		DisplayName:     describeUserAgent(meta.UserAgent),
	}
}

func fingerprintHash(meta ConnectionMetadata) string {
	normalized := make(map[string]string, len(meta.Headers)+1)
	for name, value := range meta.Headers {
		normalized[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}
	if meta.UserAgent != "" {
		normalized["user-agent"] = meta.UserAgent
	}

	keys := append([]string(nil), fingerprintHeaders...)
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(normalized[key])
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func describeUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "Unknown device"
	}
	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	osName := ua.OSInfo().Name
	switch {
	case browser != "" && osName != "":
		return browser + " on " + osName
	case browser != "":
		return browser
	case osName != "":
		return "Unknown browser on " + osName
	default:
		return "Unknown device"
	}
}
