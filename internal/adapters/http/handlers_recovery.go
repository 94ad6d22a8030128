package http

import (
	"net/http"

	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/application"
)

func (h *Handler) emailVerifyRequest(w http.ResponseWriter, r *http.Request) {
	var req application.EmailVerificationRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "email_verify_request", err)
		return
	}
	req.IPAddress = readIP(r)
	if err := h.service.RequestEmailVerification(r.Context(), req); err != nil {
		writeMappedError(r.Context(), w, "email_verify_request", err)
		return
	}
	writeMessage(w, http.StatusOK, "If the account needs verification, a link has been sent")
}

func (h *Handler) emailVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "email_verify", err)
		return
	}
	if err := h.service.VerifyEmail(r.Context(), req.Token); err != nil {
		writeMappedError(r.Context(), w, "email_verify", err)
		return
	}
	writeMessage(w, http.StatusOK, "Email verified successfully")
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req application.ForgotPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "forgot_password", err)
		return
	}
	req.IPAddress = readIP(r)
	if err := h.service.RequestPasswordReset(r.Context(), req); err != nil {
		writeMappedError(r.Context(), w, "forgot_password", err)
		return
	}
	writeMessage(w, http.StatusOK, "If the email exists, a password reset link has been sent")
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req application.PasswordResetRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "reset_password", err)
		return
	}
	req.IPAddress = readIP(r)
	req.UserAgent = r.UserAgent()
	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		writeMappedError(r.Context(), w, "reset_password", err)
		return
	}
	writeMessage(w, http.StatusOK, "Password reset successfully")
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "change_password")
		return
	}
	var req application.ChangePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "change_password", err)
		return
	}
	req.IPAddress = readIP(r)
	req.UserAgent = r.UserAgent()
	if err := h.service.ChangePassword(r.Context(), principal, req); err != nil {
		writeMappedError(r.Context(), w, "change_password", err)
		return
	}
	writeMessage(w, http.StatusOK, "Password changed successfully")
}
