package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/application"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
)

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyPrincipal
)

const requestIDHeader = "X-Request-Id"

// requestIDMiddleware trusts an inbound X-Request-Id and mints one otherwise.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, reqID)))
	})
}

// recoverMiddleware turns a handler panic into the standard 500 envelope.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logHTTPOperationError(r.Context(), "http_panic_recovery", http.StatusInternalServerError,
				"INTERNAL_ERROR", "panic recovered", fmt.Errorf("panic: %v", rec))
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// authMiddleware admits only bearer tokens backed by a live session.
// Second-factor tokens are refused here; they are only good for /login/2fa.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeMissingBearerError(r.Context(), w, "authenticate")
			return
		}
		principal, err := h.service.Authenticate(r.Context(), raw)
		if err != nil {
			writeMappedError(r.Context(), w, "authenticate", err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyPrincipal, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(ctxKeyPrincipal).(application.Principal)
	return principal, ok
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

func bearerTokenFromHeader(header string) (string, error) {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", errors.New("missing bearer token")
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, domain.ErrPasswordReused):
		return http.StatusBadRequest, "PASSWORD_REUSED", "password was used recently"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password"
	case errors.Is(err, domain.ErrTokenExpired):
		return http.StatusUnauthorized, "TOKEN_EXPIRED", "token expired"
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "INVALID_TOKEN", "invalid token"
	case errors.Is(err, domain.ErrSessionInactive):
		return http.StatusUnauthorized, "SESSION_INACTIVE", "session is no longer active"
	case errors.Is(err, domain.ErrInvalidCode):
		return http.StatusUnauthorized, "INVALID_CODE", "invalid verification code"
	case errors.Is(err, domain.ErrInvalidBackupCode):
		return http.StatusUnauthorized, "INVALID_BACKUP_CODE", "invalid backup code"
	case errors.Is(err, domain.ErrEmailNotVerified):
		return http.StatusForbidden, "EMAIL_NOT_VERIFIED", "email address not verified"
	case errors.Is(err, domain.ErrTwoFactorRequired):
		return http.StatusForbidden, "TWO_FACTOR_REQUIRED", "two-factor authentication required"
	case errors.Is(err, domain.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, "RATE_LIMITED", "too many requests"
	case errors.Is(err, domain.ErrTwoFactorAlreadyEnabled):
		return http.StatusConflict, "TWO_FACTOR_ALREADY_ENABLED", "two-factor authentication already enabled"
	case errors.Is(err, domain.ErrTwoFactorNotEnabled):
		return http.StatusConflict, "TWO_FACTOR_NOT_ENABLED", "two-factor authentication not enabled"
	case errors.Is(err, domain.ErrTwoFactorNotSetUp):
		return http.StatusConflict, "TWO_FACTOR_NOT_SET_UP", "two-factor authentication not set up"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "CONFLICT", "resource already exists"
	case errors.Is(err, domain.ErrDeviceNotFound):
		return http.StatusNotFound, "DEVICE_NOT_FOUND", "device not found"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}
