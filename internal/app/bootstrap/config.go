package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	RateLimitBackendRedis  = "redis"
	RateLimitBackendMemory = "memory"
)

// Config is the resolved runtime configuration for the session security service.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string
	MaxDBConns  int32

	TokenAlgorithm     string
	TokenSecret        string
	TokenTTL           time.Duration
	JWTPrivateKeyPEM   string
	JWTPublicKeyPEM    string
	JWTKeyID           string
	SealingKey         string
	AllowEphemeralKeys bool

	BcryptCost int

	RateLimitBackend          string
	LoginRateLimit            int
	LoginRateWindow           time.Duration
	PasswordResetRateLimit    int
	PasswordResetRateWindow   time.Duration
	PasswordHistorySize       int
	BackupCodeCount           int
	TOTPIssuer                string
	PasswordResetTokenTTL     time.Duration
	EmailVerificationTokenTTL time.Duration

	AnomalyMaxDistanceKm   float64
	AnomalyTravelWindow    time.Duration
	AnomalyFailedThreshold int
	AnomalyFailedWindow    time.Duration
	AnomalyOffHoursStart   int
	AnomalyOffHoursEnd     int
	GeoBaseURL             string
	GeoTimeout             time.Duration
	GeoCacheSize           int
	GeoCacheTTL            time.Duration
	GeoRequestsPerMinute   int

	KafkaBrokers      []string
	KafkaDefaultTopic string
	KafkaTopics       map[string]string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
type configFile struct {
	AllowEphemeralKeys *bool `yaml:"allow_ephemeral_keys"`

	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Token struct {
		Algorithm  string `yaml:"algorithm"`
		TTLMinutes int    `yaml:"ttl_minutes"`
		KeyID      string `yaml:"key_id"`
	} `yaml:"token"`
	RateLimit struct {
		Backend       string     `yaml:"backend"`
		Login         rateConfig `yaml:"login"`
		PasswordReset rateConfig `yaml:"password_reset"`
	} `yaml:"rate_limit"`
	Password struct {
		HistorySize int `yaml:"history_size"`
		BcryptCost  int `yaml:"bcrypt_cost"`
	} `yaml:"password"`
	TwoFactor struct {
		Issuer          string `yaml:"issuer"`
		BackupCodeCount int    `yaml:"backup_code_count"`
	} `yaml:"two_factor"`
	Anomaly struct {
		MaxDistanceKm        float64 `yaml:"max_distance_km"`
		TravelWindowMinutes  int     `yaml:"travel_window_minutes"`
		FailedLoginThreshold int     `yaml:"failed_login_threshold"`
		FailedWindowMinutes  int     `yaml:"failed_login_window_minutes"`
		OffHoursStart        *int    `yaml:"off_hours_start"`
		OffHoursEnd          *int    `yaml:"off_hours_end"`
	} `yaml:"anomaly"`
	Geo struct {
		BaseURL           string `yaml:"base_url"`
		TimeoutMillis     int    `yaml:"timeout_ms"`
		CacheSize         int    `yaml:"cache_size"`
		CacheTTLMinutes   int    `yaml:"cache_ttl_minutes"`
		RequestsPerMinute int    `yaml:"requests_per_minute"`
	} `yaml:"geo"`
	Kafka struct {
		Brokers      []string          `yaml:"brokers"`
		DefaultTopic string            `yaml:"default_topic"`
		Topics       map[string]string `yaml:"topics"`
	} `yaml:"kafka"`
	Outbox struct {
		PollSeconds     int `yaml:"poll_seconds"`
		BatchSize       int `yaml:"batch_size"`
		ClaimTTLSeconds int `yaml:"claim_ttl_seconds"`
		MaxRetries      int `yaml:"max_retries"`
	} `yaml:"outbox"`
}

type rateConfig struct {
	Limit         int `yaml:"limit"`
	WindowSeconds int `yaml:"window_seconds"`
}

func defaultConfig() Config {
	return Config{
		ServiceID:                 "session-security-service",
		HTTPPort:                  8080,
		GRPCPort:                  9090,
		MaxDBConns:                20,
		TokenAlgorithm:            "HS256",
		TokenTTL:                  30 * time.Minute,
		JWTKeyID:                  "session-security-key-1",
		BcryptCost:                12,
		RateLimitBackend:          RateLimitBackendRedis,
		LoginRateLimit:            5,
		LoginRateWindow:           time.Minute,
		PasswordResetRateLimit:    3,
		PasswordResetRateWindow:   5 * time.Minute,
		PasswordHistorySize:       5,
		BackupCodeCount:           8,
		TOTPIssuer:                "Session-Security-Service",
		PasswordResetTokenTTL:     time.Hour,
		EmailVerificationTokenTTL: 24 * time.Hour,
		AnomalyMaxDistanceKm:      500,
		AnomalyTravelWindow:       time.Hour,
		AnomalyFailedThreshold:    5,
		AnomalyFailedWindow:       time.Hour,
		AnomalyOffHoursStart:      0,
		AnomalyOffHoursEnd:        4,
		GeoBaseURL:                "https://ipapi.co",
		GeoTimeout:                2 * time.Second,
		GeoCacheSize:              100,
		GeoCacheTTL:               time.Hour,
		GeoRequestsPerMinute:      45,
		KafkaDefaultTopic:         "session-security.events",
		OutboxPollInterval:        2 * time.Second,
		OutboxBatchSize:           100,
		OutboxClaimTTL:            30 * time.Second,
		OutboxMaxRetries:          5,
	}
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// A missing file is not an error; a malformed one is.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		applyFile(&cfg, f)
	case !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) {
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if f.Token.Algorithm != "" {
		cfg.TokenAlgorithm = f.Token.Algorithm
	}
	if f.Token.TTLMinutes > 0 {
		cfg.TokenTTL = time.Duration(f.Token.TTLMinutes) * time.Minute
	}
	if f.Token.KeyID != "" {
		cfg.JWTKeyID = f.Token.KeyID
	}
	if f.AllowEphemeralKeys != nil {
		cfg.AllowEphemeralKeys = *f.AllowEphemeralKeys
	}
	if f.RateLimit.Backend != "" {
		cfg.RateLimitBackend = f.RateLimit.Backend
	}
	if f.RateLimit.Login.Limit > 0 {
		cfg.LoginRateLimit = f.RateLimit.Login.Limit
	}
	if f.RateLimit.Login.WindowSeconds > 0 {
		cfg.LoginRateWindow = time.Duration(f.RateLimit.Login.WindowSeconds) * time.Second
	}
	if f.RateLimit.PasswordReset.Limit > 0 {
		cfg.PasswordResetRateLimit = f.RateLimit.PasswordReset.Limit
	}
	if f.RateLimit.PasswordReset.WindowSeconds > 0 {
		cfg.PasswordResetRateWindow = time.Duration(f.RateLimit.PasswordReset.WindowSeconds) * time.Second
	}
	if f.Password.HistorySize > 0 {
		cfg.PasswordHistorySize = f.Password.HistorySize
	}
	if f.Password.BcryptCost > 0 {
		cfg.BcryptCost = f.Password.BcryptCost
	}
	if f.TwoFactor.Issuer != "" {
		cfg.TOTPIssuer = f.TwoFactor.Issuer
	}
	if f.TwoFactor.BackupCodeCount > 0 {
		cfg.BackupCodeCount = f.TwoFactor.BackupCodeCount
	}
	if f.Anomaly.MaxDistanceKm > 0 {
		cfg.AnomalyMaxDistanceKm = f.Anomaly.MaxDistanceKm
	}
	if f.Anomaly.TravelWindowMinutes > 0 {
		cfg.AnomalyTravelWindow = time.Duration(f.Anomaly.TravelWindowMinutes) * time.Minute
	}
	if f.Anomaly.FailedLoginThreshold > 0 {
		cfg.AnomalyFailedThreshold = f.Anomaly.FailedLoginThreshold
	}
	if f.Anomaly.FailedWindowMinutes > 0 {
		cfg.AnomalyFailedWindow = time.Duration(f.Anomaly.FailedWindowMinutes) * time.Minute
	}
	if f.Anomaly.OffHoursStart != nil {
		cfg.AnomalyOffHoursStart = *f.Anomaly.OffHoursStart
	}
	if f.Anomaly.OffHoursEnd != nil {
		cfg.AnomalyOffHoursEnd = *f.Anomaly.OffHoursEnd
	}
	if f.Geo.BaseURL != "" {
		cfg.GeoBaseURL = f.Geo.BaseURL
	}
	if f.Geo.TimeoutMillis > 0 {
		cfg.GeoTimeout = time.Duration(f.Geo.TimeoutMillis) * time.Millisecond
	}
	if f.Geo.CacheSize > 0 {
		cfg.GeoCacheSize = f.Geo.CacheSize
	}
	if f.Geo.CacheTTLMinutes > 0 {
		cfg.GeoCacheTTL = time.Duration(f.Geo.CacheTTLMinutes) * time.Minute
	}
	if f.Geo.RequestsPerMinute > 0 {
		cfg.GeoRequestsPerMinute = f.Geo.RequestsPerMinute
	}
	if len(f.Kafka.Brokers) > 0 {
		cfg.KafkaBrokers = f.Kafka.Brokers
	}
	if f.Kafka.DefaultTopic != "" {
		cfg.KafkaDefaultTopic = f.Kafka.DefaultTopic
	}
	if len(f.Kafka.Topics) > 0 {
		cfg.KafkaTopics = f.Kafka.Topics
	}
	if f.Outbox.PollSeconds > 0 {
		cfg.OutboxPollInterval = time.Duration(f.Outbox.PollSeconds) * time.Second
	}
	if f.Outbox.BatchSize > 0 {
		cfg.OutboxBatchSize = f.Outbox.BatchSize
	}
	if f.Outbox.ClaimTTLSeconds > 0 {
		cfg.OutboxClaimTTL = time.Duration(f.Outbox.ClaimTTLSeconds) * time.Second
	}
	if f.Outbox.MaxRetries > 0 {
		cfg.OutboxMaxRetries = f.Outbox.MaxRetries
	}
}

func applyEnv(cfg *Config) {
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)

	cfg.TokenAlgorithm = strings.ToUpper(strings.TrimSpace(envOrDefault("JWT_ALGORITHM", cfg.TokenAlgorithm)))
	cfg.TokenSecret = envOrDefault("JWT_SECRET", cfg.TokenSecret)
	cfg.TokenTTL = time.Duration(envInt("ACCESS_TOKEN_EXPIRE_MINUTES", int(cfg.TokenTTL.Minutes()))) * time.Minute
	cfg.JWTPrivateKeyPEM = envOrDefault("JWT_PRIVATE_KEY_PEM", cfg.JWTPrivateKeyPEM)
	cfg.JWTPublicKeyPEM = envOrDefault("JWT_PUBLIC_KEY_PEM", cfg.JWTPublicKeyPEM)
	cfg.JWTKeyID = envOrDefault("JWT_KEY_ID", cfg.JWTKeyID)
	cfg.SealingKey = envOrDefault("TOTP_SEALING_KEY", cfg.SealingKey)
	cfg.AllowEphemeralKeys = envBool("ALLOW_EPHEMERAL_KEYS", cfg.AllowEphemeralKeys)
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)

	cfg.RateLimitBackend = strings.ToLower(strings.TrimSpace(envOrDefault("RATE_LIMIT_BACKEND", cfg.RateLimitBackend)))
	cfg.LoginRateLimit = envInt("LOGIN_RATE_LIMIT", cfg.LoginRateLimit)
	cfg.PasswordResetRateLimit = envInt("PASSWORD_RESET_RATE_LIMIT", cfg.PasswordResetRateLimit)
	cfg.PasswordHistorySize = envInt("PASSWORD_HISTORY_SIZE", cfg.PasswordHistorySize)
	cfg.BackupCodeCount = envInt("BACKUP_CODE_COUNT", cfg.BackupCodeCount)
	cfg.TOTPIssuer = envOrDefault("TOTP_ISSUER", cfg.TOTPIssuer)

	cfg.GeoBaseURL = envOrDefault("GEO_BASE_URL", cfg.GeoBaseURL)
	cfg.GeoRequestsPerMinute = envInt("GEO_REQUESTS_PER_MINUTE", cfg.GeoRequestsPerMinute)

	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaDefaultTopic = envOrDefault("KAFKA_DEFAULT_TOPIC", cfg.KafkaDefaultTopic)

	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)
}

func (c Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("missing REDIS_URL")
	}
	switch c.RateLimitBackend {
	case RateLimitBackendRedis, RateLimitBackendMemory:
	default:
		return fmt.Errorf("unsupported rate limit backend %q", c.RateLimitBackend)
	}
	switch c.TokenAlgorithm {
	case "HS256", "HS384", "HS512":
		if c.TokenSecret == "" && !c.AllowEphemeralKeys {
			return fmt.Errorf("missing JWT_SECRET")
		}
	case "RS256":
		if (c.JWTPrivateKeyPEM == "" || c.JWTPublicKeyPEM == "") && !c.AllowEphemeralKeys {
			return fmt.Errorf("missing JWT_PRIVATE_KEY_PEM or JWT_PUBLIC_KEY_PEM")
		}
	default:
		return fmt.Errorf("unsupported token algorithm %q", c.TokenAlgorithm)
	}
	if c.SealingKey == "" && !c.AllowEphemeralKeys {
		return fmt.Errorf("missing TOTP_SEALING_KEY")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	if c.AnomalyOffHoursStart < 0 || c.AnomalyOffHoursStart > 23 || c.AnomalyOffHoursEnd < 0 || c.AnomalyOffHoursEnd > 23 {
		return fmt.Errorf("anomaly off hours must be within 0..23")
	}
	return nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
