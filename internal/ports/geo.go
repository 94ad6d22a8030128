package ports

import (
	"context"

	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
)

// GeoResolver maps an IP address to an approximate location.
// Any failure is reported as domain.ErrGeoUnavailable.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (domain.Location, error)
}
