package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/application"
)

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "list_sessions")
		return
	}
	items, err := h.service.ListSessions(r.Context(), principal)
	if err != nil {
		writeMappedError(r.Context(), w, "list_sessions", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"sessions": items})
}

func (h *Handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "revoke_session")
		return
	}
	if err := h.service.RevokeSession(r.Context(), principal, chi.URLParam(r, "session_id")); err != nil {
		writeMappedError(r.Context(), w, "revoke_session", err)
		return
	}
	writeMessage(w, http.StatusOK, "Session revoked successfully")
}

func (h *Handler) activityHistory(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "activity_history")
		return
	}
	query := application.ActivityQuery{
		Page:  parseIntDefault(r.URL.Query().Get("page"), 1),
		Limit: parseIntDefault(r.URL.Query().Get("limit"), 20),
	}
	items, err := h.service.ActivityHistory(r.Context(), principal, query)
	if err != nil {
		writeMappedError(r.Context(), w, "activity_history", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"activities": items,
		"page":       max(query.Page, 1),
	})
}
