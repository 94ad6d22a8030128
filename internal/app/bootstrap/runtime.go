package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/viralforge/mesh/services/core-platform/session-security-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/core-platform/session-security-service/internal/adapters/events"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/adapters/geo"
	grpcadapter "github.com/viralforge/mesh/services/core-platform/session-security-service/internal/adapters/grpc"
	httpadapter "github.com/viralforge/mesh/services/core-platform/session-security-service/internal/adapters/http"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/application"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	outbox     *eventadapter.OutboxWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With("service", cfg.ServiceID)
	slog.SetDefault(logger)
	logger.Info("bootstrapping session security service",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"rate_limit_backend", cfg.RateLimitBackend,
		"token_algorithm", cfg.TokenAlgorithm,
	)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Runtime, error) {
		cleanup()
		return nil, err
	}

	tokens, err := newTokenIssuer(cfg, logger)
	if err != nil {
		return fail(fmt.Errorf("init token issuer: %w", err))
	}
	sealer, err := newSecretSealer(cfg, logger)
	if err != nil {
		return fail(fmt.Errorf("init secret sealer: %w", err))
	}

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return fail(fmt.Errorf("connect postgres: %w", err))
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return fail(fmt.Errorf("gorm sql db: %w", err))
	}
	closers = append(closers, func() { _ = sqlDB.Close() })

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return fail(fmt.Errorf("run migrations: %w", err))
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fail(fmt.Errorf("connect redis: %w", err))
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	var rateLimits ports.RateLimitStore = cacheadapter.NewRedisRateLimitStore(redisClient)
	if cfg.RateLimitBackend == RateLimitBackendMemory {
		logger.Warn("using in-process rate limit counters; limits are not shared across replicas")
		rateLimits = cacheadapter.NewMemoryRateLimitStore()
	}

	var publisher ports.EventPublisher = eventadapter.NewLoggingPublisher(logger)
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopics, cfg.KafkaDefaultTopic)
		if err != nil {
			return fail(fmt.Errorf("init kafka publisher: %w", err))
		}
		closers = append(closers, func() { _ = kafka.Close() })
		publisher = kafka
	}

	repos := postgres.NewRepositories(pool, sealer)
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			TokenTTL:                  cfg.TokenTTL,
			LoginRateLimit:            application.RateLimitPolicy{Name: "login", Limit: cfg.LoginRateLimit, Window: cfg.LoginRateWindow},
			PasswordResetRateLimit:    application.RateLimitPolicy{Name: "password_reset", Limit: cfg.PasswordResetRateLimit, Window: cfg.PasswordResetRateWindow},
			PasswordHistorySize:       cfg.PasswordHistorySize,
			BackupCodeCount:           cfg.BackupCodeCount,
			TOTPIssuer:                cfg.TOTPIssuer,
			GeoLookupTimeout:          cfg.GeoTimeout,
			PasswordResetTokenTTL:     cfg.PasswordResetTokenTTL,
			EmailVerificationTokenTTL: cfg.EmailVerificationTokenTTL,
			Anomaly: application.AnomalyPolicy{
				MaxTravelKm:          cfg.AnomalyMaxDistanceKm,
				TravelWindow:         cfg.AnomalyTravelWindow,
				FailedLoginThreshold: cfg.AnomalyFailedThreshold,
				FailedLoginWindow:    cfg.AnomalyFailedWindow,
				OffHours:             &application.HourWindow{Start: cfg.AnomalyOffHoursStart, End: cfg.AnomalyOffHoursEnd},
			},
		},
		Users:       repos.Users,
		Credentials: repos.Credentials,
		Devices:     repos.Devices,
		TwoFactor:   repos.TwoFactor,
		Activities:  repos.Activities,
		Recovery:    repos.Recovery,
		Outbox:      repos.Outbox,
		RateLimits:  rateLimits,
		Sessions:    cacheadapter.NewRedisSessionStore(redisClient),
		Challenges:  cacheadapter.NewRedisChallengeStore(redisClient),
		Tokens:      tokens,
		Hasher:      security.NewBcryptHasher(cfg.BcryptCost),
		OTP:         security.NewTOTPProvider(cfg.TOTPIssuer),
		Geo: geo.NewResolver(geo.Config{
			BaseURL:           cfg.GeoBaseURL,
			Timeout:           cfg.GeoTimeout,
			CacheSize:         cfg.GeoCacheSize,
			CacheTTL:          cfg.GeoCacheTTL,
			RequestsPerMinute: cfg.GeoRequestsPerMinute,
		}, nil),
		Notifier:  eventadapter.NewOutboxNotifier(repos.Outbox),
		Sanitizer: security.NewStrictSanitizer(),
	})

	handler := httpadapter.NewHandler(svc, tokens.PublicJWKs,
		func(ctx context.Context) error { return sqlDB.PingContext(ctx) },
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpadapter.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewAuthInternalServer(svc, tokens.PublicJWKs))

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		outbox:     outbox,
		cleanupFn:  func(context.Context) { cleanup() },
	}, nil
}

// newTokenIssuer picks the signing scheme from config. Generated keys are
// only used when allow_ephemeral_keys is set; tokens then die with the process.
func newTokenIssuer(cfg Config, logger *slog.Logger) (*security.JWTIssuer, error) {
	if cfg.TokenAlgorithm == "RS256" {
		if cfg.JWTPrivateKeyPEM != "" && cfg.JWTPublicKeyPEM != "" {
			return security.NewRSAIssuer(cfg.JWTKeyID, cfg.JWTPrivateKeyPEM, cfg.JWTPublicKeyPEM)
		}
		logger.Warn("using ephemeral RSA signing key")
		return security.NewEphemeralRSAIssuer(cfg.JWTKeyID)
	}
	if cfg.TokenSecret != "" {
		return security.NewHMACIssuer(cfg.TokenAlgorithm, cfg.TokenSecret)
	}
	logger.Warn("using ephemeral HMAC signing secret")
	return security.NewEphemeralHMACIssuer()
}

func newSecretSealer(cfg Config, logger *slog.Logger) (*security.SecretSealer, error) {
	if cfg.SealingKey != "" {
		return security.NewSecretSealer([]byte(cfg.SealingKey))
	}
	logger.Warn("using ephemeral TOTP sealing key; enrolled secrets will not survive a restart")
	return security.NewEphemeralSecretSealer()
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		r.cleanupFn(ctx)
		return fmt.Errorf("listen gRPC: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", lis.Addr().String())
		if err := r.grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		r.logger.Error("server failure", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return runErr
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("outbox worker started")
	err := r.outbox.Run(ctx)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
