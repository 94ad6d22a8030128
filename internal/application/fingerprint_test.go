package application

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

const chromeOnLinux = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func TestIdentifyIsDeterministic(t *testing.T) {
	t.Parallel()

	f := NewDeviceFingerprinter()
	meta := ConnectionMetadata{
		UserID:    uuid.New(),
		IPAddress: "203.0.113.7",
		UserAgent: chromeOnLinux,
		Headers:   map[string]string{"Accept-Language": "en-US", "DNT": "1"},
	}

	first := f.Identify(meta)
	second := f.Identify(meta)
	if first != second {
		t.Fatalf("identity changed between calls: %+v vs %+v", first, second)
	}
	if len(first.DeviceID) != 64 || len(first.FingerprintHash) != 64 {
		t.Fatalf("expected hex sha256 digests, got %+v", first)
	}

	moved := meta
	moved.IPAddress = "198.51.100.9"
	if f.Identify(moved).DeviceID == first.DeviceID {
		t.Fatalf("a different network should yield a different device id")
	}
}

func TestFingerprintIgnoresHeaderCaseAndUnrelatedHeaders(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	a := fingerprintHash(ConnectionMetadata{
		UserID:    userID,
		UserAgent: chromeOnLinux,
		Headers:   map[string]string{"Accept-Language": "en-US", "X-Request-Id": "1"},
	})
	b := fingerprintHash(ConnectionMetadata{
		UserID:    userID,
		UserAgent: chromeOnLinux,
		Headers:   map[string]string{"accept-language": " en-US ", "X-Request-Id": "2"},
	})
	if a != b {
		t.Fatalf("fingerprint should only depend on the passive header set")
	}
}

func TestDescribeUserAgent(t *testing.T) {
	t.Parallel()

	if got := describeUserAgent(""); got != "Unknown device" {
		t.Fatalf("empty agent: got %q", got)
	}
	if got := describeUserAgent(chromeOnLinux); !strings.HasPrefix(got, "Chrome") {
		t.Fatalf("expected a Chrome label, got %q", got)
	}
}
