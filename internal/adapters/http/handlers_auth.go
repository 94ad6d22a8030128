package http

import (
	"net/http"

	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/application"
)

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	for _, check := range h.ready {
		if err := check(r.Context()); err != nil {
			writeFailure(r.Context(), w, "readyz", http.StatusServiceUnavailable, "NOT_READY", "dependency unavailable", err)
			return
		}
	}
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) publicKeys(w http.ResponseWriter, _ *http.Request) {
	keys := []map[string]any{}
	if h.jwks != nil {
		keys = h.jwks()
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "register", err)
		return
	}
	res, err := h.service.Register(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "register", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req application.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "login", err)
		return
	}
	req.IPAddress = readIP(r)
	req.UserAgent = r.UserAgent()
	req.Headers = clientHeaders(r)

	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "login", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) completeTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req application.TwoFactorLoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "complete_two_factor", err)
		return
	}
	if req.TempToken == "" {
		if token, err := bearerTokenFromHeader(r.Header.Get("Authorization")); err == nil {
			req.TempToken = token
		}
	}
	req.IPAddress = readIP(r)
	req.UserAgent = r.UserAgent()
	req.Headers = clientHeaders(r)

	res, err := h.service.CompleteTwoFactor(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "complete_two_factor", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "me")
		return
	}
	user, err := h.service.CurrentUser(r.Context(), principal)
	if err != nil {
		writeMappedError(r.Context(), w, "me", err)
		return
	}
	writeSuccess(w, http.StatusOK, user)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "logout")
		return
	}
	if err := h.service.Logout(r.Context(), principal, readIP(r), r.UserAgent()); err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}
