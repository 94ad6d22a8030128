package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/application"
)

// AuthService is the slice of the application layer the HTTP adapter drives.
type AuthService interface {
	Register(ctx context.Context, req application.RegisterRequest) (application.RegisterResponse, error)
	Login(ctx context.Context, req application.LoginRequest) (application.LoginResponse, error)
	CompleteTwoFactor(ctx context.Context, req application.TwoFactorLoginRequest) (application.LoginResponse, error)
	Authenticate(ctx context.Context, token string) (application.Principal, error)
	Logout(ctx context.Context, principal application.Principal, ip, userAgent string) error
	CurrentUser(ctx context.Context, principal application.Principal) (*application.UserView, error)

	RequestEmailVerification(ctx context.Context, req application.EmailVerificationRequest) error
	VerifyEmail(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, req application.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req application.PasswordResetRequest) error
	ChangePassword(ctx context.Context, principal application.Principal, req application.ChangePasswordRequest) error

	ListSessions(ctx context.Context, principal application.Principal) ([]application.SessionView, error)
	RevokeSession(ctx context.Context, principal application.Principal, sessionID string) error
	ActivityHistory(ctx context.Context, principal application.Principal, query application.ActivityQuery) ([]application.ActivityView, error)

	SetupTwoFactor(ctx context.Context, principal application.Principal) (application.TwoFactorSetup, error)
	VerifyTwoFactorSetup(ctx context.Context, principal application.Principal, code string) error
	DisableTwoFactor(ctx context.Context, principal application.Principal, code string) error
	ConsumeBackupCode(ctx context.Context, principal application.Principal, code string) error
	TwoFactorStatus(ctx context.Context, principal application.Principal) (application.TwoFactorStatus, error)

	ListDevices(ctx context.Context, principal application.Principal) ([]application.DeviceView, error)
	TrustDevice(ctx context.Context, principal application.Principal, deviceID string) error
	RemoveDevice(ctx context.Context, principal application.Principal, deviceID string) error
	SecurityStatus(ctx context.Context, principal application.Principal) (application.SecurityStatus, error)
}

// ReadinessCheck reports whether a backing dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Handler is the HTTP adapter entrypoint for session-security use-cases.
type Handler struct {
	service AuthService
	ready   []ReadinessCheck
	jwks    func() []map[string]any
}

// NewHandler constructs an HTTP handler bound to the application service.
// jwks may be nil when tokens are signed with a shared secret.
func NewHandler(service AuthService, jwks func() []map[string]any, ready ...ReadinessCheck) *Handler {
	return &Handler{service: service, ready: ready, jwks: jwks}
}

// NewRouter registers the HTTP routes and middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(recoverMiddleware)
	r.Use(accessLogMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/auth/v1", func(r chi.Router) {
		r.Get("/.well-known/jwks.json", handler.publicKeys)

		r.Post("/register", handler.register)
		r.Post("/login", handler.login)
		r.Post("/login/2fa", handler.completeTwoFactor)
		r.Post("/verify-email/request", handler.emailVerifyRequest)
		r.Post("/verify-email", handler.emailVerify)
		r.Post("/forgot-password", handler.forgotPassword)
		r.Post("/reset-password", handler.resetPassword)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Get("/me", handler.me)
			r.Post("/logout", handler.logout)
			r.Post("/change-password", handler.changePassword)

			r.Get("/sessions", handler.listSessions)
			r.Delete("/sessions/{session_id}", handler.revokeSession)
			r.Get("/activity-history", handler.activityHistory)

			r.Post("/2fa/setup", handler.twoFactorSetup)
			r.Post("/2fa/verify", handler.twoFactorVerify)
			r.Post("/2fa/disable", handler.twoFactorDisable)
			r.Post("/2fa/backup", handler.twoFactorBackup)
			r.Get("/2fa/status", handler.twoFactorStatus)

			r.Get("/devices", handler.listDevices)
			r.Post("/devices/{device_id}/trust", handler.trustDevice)
			r.Delete("/devices/{device_id}", handler.removeDevice)
			r.Get("/security-status", handler.securityStatus)
		})
	})

	return r
}
