package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/ports"
)

const (
	methodTOTP       = "totp"
	methodBackupCode = "backup_code"
	methodEmailCode  = "email_code"
)

// loginAttempt is the client context of one login, carried across a second-factor pause.
type loginAttempt struct {
	ip        string
	userAgent string
	headers   map[string]string
}

// Login runs the authentication pipeline. Stages execute in a fixed order and the
// access token is minted only after every earlier stage has succeeded.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	attempt := loginAttempt{
		ip:        strings.TrimSpace(req.IPAddress),
		userAgent: req.UserAgent,
		headers:   req.Headers,
	}
	if err := s.loginLimiter.Check(ctx, attempt.ip); err != nil {
		return LoginResponse{}, err
	}

	// The identifier is matched exactly as sent. A malformed one simply finds no
	// account, so every bad pair fails the same way.
	user, err := s.authenticator.Verify(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			s.recordFailedLogin(ctx, req.Email, attempt)
		}
		return LoginResponse{}, err
	}
	if err := s.authenticator.RequireVerified(user); err != nil {
		s.recordActivity(ctx, user.UserID, domain.ActivityLoginFailed, "Login blocked: email not verified", attempt.ip, attempt.userAgent)
		appLogger().WarnContext(ctx, "login blocked for unverified email",
			"operation", "login",
			"outcome", "blocked",
			"user_id", user.UserID,
		)
		return LoginResponse{}, err
	}

	location := s.resolveLocationAsync(ctx, attempt.ip)

	twoFactorEnabled, err := s.twoFactor.IsEnabled(ctx, user.UserID)
	if err != nil {
		return LoginResponse{}, err
	}
	if !twoFactorEnabled {
		return s.completeLogin(ctx, user, attempt, location, false)
	}

	code := strings.TrimSpace(req.TOTPCode)
	if code == "" {
		return s.beginChallenge(ctx, user, attempt, ports.ChallengeTwoFactor)
	}
	if err := s.twoFactor.Challenge(ctx, user.UserID, code); err != nil {
		if errors.Is(err, domain.ErrInvalidCode) {
			s.recordActivity(ctx, user.UserID, domain.ActivityLoginFailed, "Invalid two-factor code", attempt.ip, attempt.userAgent)
		}
		return LoginResponse{}, err
	}
	return s.completeLogin(ctx, user, attempt, location, true)
}

// CompleteTwoFactor finishes a login parked behind a temporary token.
// The pending challenge is claimed exactly once.
func (s *Service) CompleteTwoFactor(ctx context.Context, req TwoFactorLoginRequest) (LoginResponse, error) {
	tempToken := strings.TrimSpace(req.TempToken)
	if tempToken == "" {
		return LoginResponse{}, fmt.Errorf("%w: temp_token is required", domain.ErrInvalidInput)
	}
	claims, err := s.tokens.Validate(tempToken)
	if err != nil {
		return LoginResponse{}, err
	}
	if !claims.Temporary || claims.TokenID == "" {
		return LoginResponse{}, fmt.Errorf("%w: not a second-factor token", domain.ErrInvalidToken)
	}

	challenge, err := s.challenges.Get(ctx, claims.TokenID)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("load challenge: %w", err)
	}
	if challenge == nil || challenge.UserID.String() != claims.Subject {
		return LoginResponse{}, fmt.Errorf("%w: challenge expired or already used", domain.ErrInvalidToken)
	}

	user, err := s.users.GetByID(ctx, challenge.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return LoginResponse{}, domain.ErrInvalidToken
		}
		return LoginResponse{}, fmt.Errorf("load user: %w", err)
	}

	attempt := loginAttempt{
		ip:        firstNonEmpty(strings.TrimSpace(req.IPAddress), challenge.IPAddress),
		userAgent: firstNonEmpty(req.UserAgent, challenge.UserAgent),
		headers:   req.Headers,
	}
	if len(attempt.headers) == 0 {
		attempt.headers = challenge.Headers
	}

	method := secondFactorMethod(req.Method, challenge.Reason)
	if method == methodBackupCode {
		// Backup codes are spent on use, so the challenge is claimed first: a
		// caller that loses the claim must not burn a code.
		if err := s.claimChallenge(ctx, claims.TokenID); err != nil {
			return LoginResponse{}, err
		}
		if err := s.verifySecondFactor(ctx, user, *challenge, method, req.Code); err != nil {
			if s.rejectSecondFactor(ctx, claims.TokenID, user, *challenge, attempt, err) {
				s.restoreChallenge(ctx, claims.TokenID, *challenge)
			}
			return LoginResponse{}, err
		}
	} else {
		if err := s.verifySecondFactor(ctx, user, *challenge, method, req.Code); err != nil {
			if !s.rejectSecondFactor(ctx, claims.TokenID, user, *challenge, attempt, err) {
				_, _ = s.challenges.Delete(ctx, claims.TokenID)
			}
			return LoginResponse{}, err
		}
		if err := s.claimChallenge(ctx, claims.TokenID); err != nil {
			return LoginResponse{}, err
		}
	}

	location := s.resolveLocationAsync(ctx, attempt.ip)
	return s.completeLogin(ctx, user, attempt, location, true)
}

// completeLogin runs the device and risk stages and either issues the session
// or parks the login behind a step-up challenge.
func (s *Service) completeLogin(
	ctx context.Context,
	user domain.User,
	attempt loginAttempt,
	location func() *domain.Location,
	secondFactorPresented bool,
) (LoginResponse, error) {
	identity := s.fingerprinter.Identify(ConnectionMetadata{
		UserID:    user.UserID,
		IPAddress: attempt.ip,
		UserAgent: attempt.userAgent,
		Headers:   attempt.headers,
	})

	loc := location()
	now := s.nowFn()
	upserted, err := s.devices.Upsert(ctx, user.UserID, identity, DeviceObservation{
		IPAddress: attempt.ip,
		UserAgent: attempt.userAgent,
		Location:  loc,
		At:        now,
	})
	if err != nil {
		appLogger().ErrorContext(ctx, "device upsert failed",
			"operation", "login",
			"outcome", "failure",
			"user_id", user.UserID,
			"error", err,
		)
		return LoginResponse{}, err
	}

	assessment, err := s.anomaly.Evaluate(ctx, user.UserID, LoginEvent{
		IPAddress: attempt.ip,
		At:        now,
		Location:  loc,
		Previous:  upserted.Previous,
	}, &upserted.Device)
	if err != nil {
		appLogger().ErrorContext(ctx, "login risk evaluation failed",
			"operation", "login",
			"outcome", "failure",
			"user_id", user.UserID,
			"error", err,
		)
		return LoginResponse{}, fmt.Errorf("evaluate login risk: %w", err)
	}
	s.alertOnRisk(ctx, user, attempt, upserted, assessment)

	if assessment.RequireSecondFactor && !secondFactorPresented {
		appLogger().WarnContext(ctx, "login escalated to second factor",
			"operation", "login",
			"outcome", "step_up",
			"user_id", user.UserID,
			"device_id", upserted.Device.DeviceID,
			"suspicious_count", upserted.Device.SuspiciousCount,
		)
		return s.beginChallenge(ctx, user, attempt, ports.ChallengeStepUp)
	}
	return s.issueSession(ctx, user, attempt)
}

// beginChallenge parks the login and returns a temporary token.
// Step-up challenges are answered with a one-time code sent by e-mail, since the
// account has no enabled authenticator.
func (s *Service) beginChallenge(ctx context.Context, user domain.User, attempt loginAttempt, reason ports.ChallengeReason) (LoginResponse, error) {
	challengeID := uuid.NewString()
	challenge := ports.PendingChallenge{
		UserID:    user.UserID,
		Email:     user.Email,
		Role:      string(user.Role),
		Reason:    reason,
		IPAddress: attempt.ip,
		UserAgent: attempt.userAgent,
		Headers:   attempt.headers,
		ExpiresAt: s.nowFn().Add(TemporaryTokenTTL),
	}

	methods := []string{methodTOTP, methodBackupCode}
	if reason == ports.ChallengeStepUp {
		methods = []string{methodEmailCode}
		code := randomDigits(6)
		challenge.EmailCodeHash = hashToken(code)
		if err := s.enqueueEvent(ctx, eventTypeStepUpCodeIssued, user.UserID.String(), map[string]any{
			"user_id":    user.UserID.String(),
			"email":      user.Email,
			"code":       code,
			"expires_at": challenge.ExpiresAt,
		}); err != nil {
			return LoginResponse{}, fmt.Errorf("enqueue step-up code: %w", err)
		}
	}

	if err := s.challenges.Put(ctx, challengeID, challenge, TemporaryTokenTTL); err != nil {
		return LoginResponse{}, fmt.Errorf("store challenge: %w", err)
	}
	tempToken, err := s.tokens.Issue(user.UserID.String(), ports.TokenClaims{
		Role:      string(user.Role),
		Email:     user.Email,
		Temporary: true,
		TokenID:   challengeID,
	}, TemporaryTokenTTL)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("issue temporary token: %w", err)
	}

	appLogger().InfoContext(ctx, "second factor required",
		"operation", "login",
		"outcome", "challenge",
		"user_id", user.UserID,
		"reason", string(reason),
	)
	return LoginResponse{
		RequiresTwoFactor: true,
		TempToken:         tempToken,
		Methods:           methods,
	}, nil
}

func secondFactorMethod(requested string, reason ports.ChallengeReason) string {
	method := strings.ToLower(strings.TrimSpace(requested))
	if method != "" {
		return method
	}
	if reason == ports.ChallengeStepUp {
		return methodEmailCode
	}
	return methodTOTP
}

// claimChallenge deletes the pending challenge; only one caller wins it.
func (s *Service) claimChallenge(ctx context.Context, challengeID string) error {
	claimed, err := s.challenges.Delete(ctx, challengeID)
	if err != nil {
		return fmt.Errorf("claim challenge: %w", err)
	}
	if !claimed {
		return fmt.Errorf("%w: challenge already used", domain.ErrInvalidToken)
	}
	return nil
}

// rejectSecondFactor audits a wrong second factor and reports whether the
// challenge may still be retried.
func (s *Service) rejectSecondFactor(ctx context.Context, challengeID string, user domain.User, challenge ports.PendingChallenge, attempt loginAttempt, cause error) bool {
	failures, failErr := s.challenges.RecordFailure(ctx, challengeID, TemporaryTokenTTL)
	retryable := failErr == nil && failures < int64(s.cfg.MaxChallengeFailures)
	s.recordActivity(ctx, user.UserID, domain.ActivityLoginFailed, "Invalid second factor", attempt.ip, attempt.userAgent)
	appLogger().WarnContext(ctx, "second factor rejected",
		"operation", "complete_two_factor",
		"outcome", "failure",
		"user_id", user.UserID,
		"reason", string(challenge.Reason),
		"failures", failures,
		"error", cause,
	)
	return retryable
}

// restoreChallenge puts a claimed challenge back for its remaining lifetime.
func (s *Service) restoreChallenge(ctx context.Context, challengeID string, challenge ports.PendingChallenge) {
	ttl := challenge.ExpiresAt.Sub(s.nowFn())
	if ttl <= 0 {
		return
	}
	if err := s.challenges.Put(ctx, challengeID, challenge, ttl); err != nil {
		appLogger().WarnContext(ctx, "challenge not restored",
			"operation", "complete_two_factor",
			"outcome", "failure",
			"user_id", challenge.UserID,
			"error", err,
		)
	}
}

func (s *Service) verifySecondFactor(ctx context.Context, user domain.User, challenge ports.PendingChallenge, method, code string) error {
	switch method {
	case methodTOTP:
		return s.twoFactor.Challenge(ctx, user.UserID, code)
	case methodBackupCode:
		if err := s.twoFactor.ConsumeBackupCode(ctx, user.UserID, code); err != nil {
			return err
		}
		s.recordActivity(ctx, user.UserID, domain.ActivityBackupCodeConsumed, "Backup code used to sign in", challenge.IPAddress, challenge.UserAgent)
		return nil
	case methodEmailCode:
		if challenge.EmailCodeHash == "" {
			return domain.ErrInvalidCode
		}
		got := hashToken(normalizeCode(code))
		if subtle.ConstantTimeCompare([]byte(got), []byte(challenge.EmailCodeHash)) != 1 {
			return domain.ErrInvalidCode
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported second-factor method %q", domain.ErrInvalidInput, method)
	}
}

func (s *Service) issueSession(ctx context.Context, user domain.User, attempt loginAttempt) (LoginResponse, error) {
	ttl := s.cfg.TokenTTL
	token, err := s.tokens.Issue(user.UserID.String(), ports.TokenClaims{
		Role:    string(user.Role),
		Email:   user.Email,
		TokenID: uuid.NewString(),
	}, ttl)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("issue access token: %w", err)
	}
	if _, err := s.sessions.Register(ctx, user.UserID, token, ttl); err != nil {
		appLogger().ErrorContext(ctx, "session registration failed",
			"operation", "login",
			"outcome", "failure",
			"user_id", user.UserID,
			"error", err,
		)
		return LoginResponse{}, err
	}

	s.recordActivity(ctx, user.UserID, domain.ActivityLoginSuccess, "Successful login", attempt.ip, attempt.userAgent)
	appLogger().InfoContext(ctx, "login succeeded",
		"operation", "login",
		"outcome", "success",
		"user_id", user.UserID,
	)
	return LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(ttl.Seconds()),
		User:        toUserView(user),
	}, nil
}

func (s *Service) alertOnRisk(ctx context.Context, user domain.User, attempt loginAttempt, upserted DeviceUpsertResult, assessment Assessment) {
	device := upserted.Device
	deviceInfo := map[string]any{
		"device_id":    device.DeviceID,
		"device_name":  device.DisplayName,
		"ip_address":   attempt.ip,
		"trusted":      device.Trusted,
		"last_used_at": device.LastUsedAt,
	}
	if device.Location != nil {
		deviceInfo["location"] = device.Location
	}

	if risk := assessment.RiskWarnings(); len(risk) > 0 {
		details := cloneDetails(deviceInfo)
		details["warnings"] = risk
		s.sendAlert(ctx, user.Email, domain.AlertSuspiciousActivity, details)
		appLogger().WarnContext(ctx, "suspicious login detected",
			"operation", "login",
			"outcome", "warning",
			"user_id", user.UserID,
			"device_id", device.DeviceID,
			"warning_count", len(risk),
		)
	}
	if !device.Trusted {
		s.sendAlert(ctx, user.Email, domain.AlertNewDevice, cloneDetails(deviceInfo))
	}
}

// recordFailedLogin audits a failed password check when the account exists.
func (s *Service) recordFailedLogin(ctx context.Context, email string, attempt loginAttempt) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		appLogger().WarnContext(ctx, "login failed for unknown account",
			"operation", "login",
			"outcome", "failure",
			"ip_address", attempt.ip,
		)
		return
	}
	s.recordActivity(ctx, user.UserID, domain.ActivityLoginFailed, "Failed login attempt", attempt.ip, attempt.userAgent)
	appLogger().WarnContext(ctx, "login failed",
		"operation", "login",
		"outcome", "failure",
		"user_id", user.UserID,
		"ip_address", attempt.ip,
	)
}

// resolveLocationAsync starts the geo lookup and returns a join function.
// The lookup carries its own timeout, so joining never waits longer than that.
func (s *Service) resolveLocationAsync(ctx context.Context, ip string) func() *domain.Location {
	if s.geo == nil {
		return func() *domain.Location { return nil }
	}
	ch := make(chan *domain.Location, 1)
	go func() {
		lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.GeoLookupTimeout)
		defer cancel()
		loc, err := s.geo.Resolve(lookupCtx, ip)
		if err != nil {
			appLogger().DebugContext(ctx, "geolocation unavailable",
				"operation", "resolve_location",
				"outcome", "degraded",
				"error", err,
			)
			ch <- nil
			return
		}
		ch <- &loc
	}()

	var (
		once   sync.Once
		result *domain.Location
	)
	return func() *domain.Location {
		once.Do(func() { result = <-ch })
		return result
	}
}

func cloneDetails(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
