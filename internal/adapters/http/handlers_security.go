package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/application"
)

func (h *Handler) twoFactorSetup(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "two_factor_setup")
		return
	}
	res, err := h.service.SetupTwoFactor(r.Context(), principal)
	if err != nil {
		writeMappedError(r.Context(), w, "two_factor_setup", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) twoFactorVerify(w http.ResponseWriter, r *http.Request) {
	h.withCode(w, r, "two_factor_verify", h.service.VerifyTwoFactorSetup, "Two-factor authentication enabled")
}

func (h *Handler) twoFactorDisable(w http.ResponseWriter, r *http.Request) {
	h.withCode(w, r, "two_factor_disable", h.service.DisableTwoFactor, "Two-factor authentication disabled")
}

func (h *Handler) twoFactorBackup(w http.ResponseWriter, r *http.Request) {
	h.withCode(w, r, "two_factor_backup", h.service.ConsumeBackupCode, "Backup code accepted")
}

// withCode runs a principal-scoped operation that takes a single code from the body.
func (h *Handler) withCode(
	w http.ResponseWriter,
	r *http.Request,
	operation string,
	fn func(ctx context.Context, principal application.Principal, code string) error,
	message string,
) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, operation)
		return
	}
	var req application.TwoFactorCodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, operation, err)
		return
	}
	if err := fn(r.Context(), principal, req.Code); err != nil {
		writeMappedError(r.Context(), w, operation, err)
		return
	}
	writeMessage(w, http.StatusOK, message)
}

func (h *Handler) twoFactorStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "two_factor_status")
		return
	}
	res, err := h.service.TwoFactorStatus(r.Context(), principal)
	if err != nil {
		writeMappedError(r.Context(), w, "two_factor_status", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) listDevices(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "list_devices")
		return
	}
	items, err := h.service.ListDevices(r.Context(), principal)
	if err != nil {
		writeMappedError(r.Context(), w, "list_devices", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"devices": items})
}

func (h *Handler) trustDevice(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "trust_device")
		return
	}
	if err := h.service.TrustDevice(r.Context(), principal, chi.URLParam(r, "device_id")); err != nil {
		writeMappedError(r.Context(), w, "trust_device", err)
		return
	}
	writeMessage(w, http.StatusOK, "Device trusted")
}

func (h *Handler) removeDevice(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "remove_device")
		return
	}
	if err := h.service.RemoveDevice(r.Context(), principal, chi.URLParam(r, "device_id")); err != nil {
		writeMappedError(r.Context(), w, "remove_device", err)
		return
	}
	writeMessage(w, http.StatusOK, "Device removed")
}

func (h *Handler) securityStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "security_status")
		return
	}
	res, err := h.service.SecurityStatus(r.Context(), principal)
	if err != nil {
		writeMappedError(r.Context(), w, "security_status", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
