package application

import (
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

const serviceName = "Session-Security-Service"

// TemporaryTokenTTL bounds how long a login may stay parked behind a second factor.
const TemporaryTokenTTL = 5 * time.Minute

// Config carries the policy knobs of the login pipeline.
type Config struct {
	DefaultRole string
	TokenTTL    time.Duration

	LoginRateLimit         RateLimitPolicy
	PasswordResetRateLimit RateLimitPolicy

	PasswordHistorySize int
	BackupCodeCount     int
	TOTPIssuer          string

	Anomaly AnomalyPolicy

	GeoLookupTimeout          time.Duration
	MaxChallengeFailures      int
	PasswordResetTokenTTL     time.Duration
	EmailVerificationTokenTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.DefaultRole == "" {
		c.DefaultRole = "student"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 30 * time.Minute
	}
	if c.LoginRateLimit.Limit <= 0 {
		c.LoginRateLimit = RateLimitPolicy{Name: "login", Limit: 5, Window: time.Minute}
	}
	if c.PasswordResetRateLimit.Limit <= 0 {
		c.PasswordResetRateLimit = RateLimitPolicy{Name: "password_reset", Limit: 3, Window: 5 * time.Minute}
	}
	if c.PasswordHistorySize <= 0 {
		c.PasswordHistorySize = 5
	}
	if c.BackupCodeCount <= 0 {
		c.BackupCodeCount = 8
	}
	if c.TOTPIssuer == "" {
		c.TOTPIssuer = serviceName
	}
	c.Anomaly = c.Anomaly.withDefaults()
	if c.GeoLookupTimeout <= 0 {
		c.GeoLookupTimeout = 2 * time.Second
	}
	if c.MaxChallengeFailures <= 0 {
		c.MaxChallengeFailures = 5
	}
	if c.PasswordResetTokenTTL <= 0 {
		c.PasswordResetTokenTTL = time.Hour
	}
	if c.EmailVerificationTokenTTL <= 0 {
		c.EmailVerificationTokenTTL = 24 * time.Hour
	}
	return c
}

// Service orchestrates the authentication and session-security use-cases.
type Service struct {
	cfg Config

	users       ports.UserRepository
	credentials ports.CredentialRepository
	activities  ports.ActivityRepository
	recovery    ports.RecoveryRepository
	outbox      ports.OutboxRepository
	challenges  ports.ChallengeStore
	tokens      ports.TokenIssuer
	hasher      ports.PasswordHasher
	geo         ports.GeoResolver
	notifier    ports.SecurityNotifier
	sanitizer   ports.TextSanitizer

	loginLimiter  *RateLimiter
	resetLimiter  *RateLimiter
	authenticator *CredentialAuthenticator
	sessions      *SessionRegistry
	fingerprinter *DeviceFingerprinter
	devices       *DeviceTrustManager
	twoFactor     *TwoFactorAuthenticator
	anomaly       *AnomalyDetector

	nowFn func() time.Time
}

// Dependencies lists the ports the service is assembled from.
type Dependencies struct {
	Config      Config
	Users       ports.UserRepository
	Credentials ports.CredentialRepository
	Devices     ports.DeviceRepository
	TwoFactor   ports.TwoFactorRepository
	Activities  ports.ActivityRepository
	Recovery    ports.RecoveryRepository
	Outbox      ports.OutboxRepository
	RateLimits  ports.RateLimitStore
	Sessions    ports.SessionStore
	Challenges  ports.ChallengeStore
	Tokens      ports.TokenIssuer
	Hasher      ports.PasswordHasher
	OTP         ports.OTPProvider
	Geo         ports.GeoResolver
	Notifier    ports.SecurityNotifier
	Sanitizer   ports.TextSanitizer
	// Now overrides the clock; nil means time.Now in UTC.
	Now func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config.withDefaults()
	nowFn := deps.Now
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}

	devices := NewDeviceTrustManager(deps.Devices, deps.Sanitizer)
	return &Service{
		cfg:           cfg,
		users:         deps.Users,
		credentials:   deps.Credentials,
		activities:    deps.Activities,
		recovery:      deps.Recovery,
		outbox:        deps.Outbox,
		challenges:    deps.Challenges,
		tokens:        deps.Tokens,
		hasher:        deps.Hasher,
		geo:           deps.Geo,
		notifier:      deps.Notifier,
		sanitizer:     deps.Sanitizer,
		loginLimiter:  NewRateLimiter(cfg.LoginRateLimit, deps.RateLimits).withClock(nowFn),
		resetLimiter:  NewRateLimiter(cfg.PasswordResetRateLimit, deps.RateLimits).withClock(nowFn),
		authenticator: NewCredentialAuthenticator(deps.Users, deps.Credentials, deps.Hasher, cfg.PasswordHistorySize).withClock(nowFn),
		sessions:      NewSessionRegistry(deps.Sessions).withClock(nowFn),
		fingerprinter: NewDeviceFingerprinter(),
		devices:       devices,
		twoFactor:     NewTwoFactorAuthenticator(deps.TwoFactor, deps.OTP, cfg.TOTPIssuer, cfg.BackupCodeCount).withClock(nowFn),
		anomaly:       NewAnomalyDetector(cfg.Anomaly, deps.Activities, devices).withClock(nowFn),
		nowFn:         nowFn,
	}
}

func appLogger() *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"module", "application",
		"layer", "application",
	)
}
