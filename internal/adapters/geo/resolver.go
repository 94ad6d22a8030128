package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
)

const (
	DefaultBaseURL           = "https://ipapi.co"
	DefaultTimeout           = 2 * time.Second
	DefaultCacheSize         = 100
	DefaultCacheTTL          = time.Hour
	DefaultRequestsPerMinute = 45

	maxResponseBytes = 64 << 10
)

type Config struct {
	BaseURL           string
	Timeout           time.Duration
	CacheSize         int
	CacheTTL          time.Duration
	RequestsPerMinute int
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = DefaultRequestsPerMinute
	}
	return c
}

// Resolver looks up IP locations against an ipapi-compatible endpoint.
// Successful lookups are cached; the upstream quota is enforced locally and
// never waited on, so an exhausted quota reads as an unavailable location.
type Resolver struct {
	cfg     Config
	client  *http.Client
	cache   *expirable.LRU[string, domain.Location]
	limiter *rate.Limiter
}

func NewResolver(cfg Config, client *http.Client) *Resolver {
	cfg = cfg.withDefaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	perSecond := rate.Limit(float64(cfg.RequestsPerMinute) / 60)
	return &Resolver{
		cfg:     cfg,
		client:  client,
		cache:   expirable.NewLRU[string, domain.Location](cfg.CacheSize, nil, cfg.CacheTTL),
		limiter: rate.NewLimiter(perSecond, cfg.RequestsPerMinute),
	}
}

type ipapiResponse struct {
	City        string   `json:"city"`
	Region      string   `json:"region"`
	CountryName string   `json:"country_name"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Error       bool     `json:"error"`
	Reason      string   `json:"reason"`
}

func (r *Resolver) Resolve(ctx context.Context, ip string) (domain.Location, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return domain.Location{}, fmt.Errorf("%w: unparseable address", domain.ErrGeoUnavailable)
	}
	addr = addr.Unmap()
	if !addr.IsGlobalUnicast() || addr.IsPrivate() {
		return domain.Location{}, fmt.Errorf("%w: non-public address", domain.ErrGeoUnavailable)
	}
	key := addr.String()
	if loc, ok := r.cache.Get(key); ok {
		return loc, nil
	}
	if !r.limiter.Allow() {
		slog.Default().WarnContext(ctx, "geo lookup quota exhausted",
			"module", "geo",
			"layer", "adapter",
			"operation", "resolve",
			"outcome", "throttled",
		)
		return domain.Location{}, fmt.Errorf("%w: lookup quota exhausted", domain.ErrGeoUnavailable)
	}

	loc, err := r.fetch(ctx, key)
	if err != nil {
		slog.Default().WarnContext(ctx, "geo lookup failed",
			"module", "geo",
			"layer", "adapter",
			"operation", "resolve",
			"outcome", "failure",
			"error", err,
		)
		return domain.Location{}, fmt.Errorf("%w: %v", domain.ErrGeoUnavailable, err)
	}
	r.cache.Add(key, loc)
	return loc, nil
}

func (r *Resolver) fetch(ctx context.Context, ip string) (domain.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+"/"+ip+"/json/", nil)
	if err != nil {
		return domain.Location{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return domain.Location{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Location{}, fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	var body ipapiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return domain.Location{}, fmt.Errorf("decode response: %w", err)
	}
	if body.Error {
		return domain.Location{}, fmt.Errorf("upstream error: %s", body.Reason)
	}
	if body.Latitude == nil || body.Longitude == nil {
		return domain.Location{}, fmt.Errorf("response has no coordinates")
	}
	return domain.Location{
		City:      body.City,
		Region:    body.Region,
		Country:   body.CountryName,
		Latitude:  *body.Latitude,
		Longitude: *body.Longitude,
	}, nil
}
