package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

var adapterLogAttrs = []any{
	"service", "session-security-service",
	"module", "http",
	"layer", "adapter",
}

func httpLogger() *slog.Logger {
	return slog.Default().With(adapterLogAttrs...)
}

// logByStatus picks the level from the response class: 5xx is an error on our
// side, 4xx is the caller's.
func logByStatus(ctx context.Context, status int, msg string, fields ...any) {
	level := slog.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		level = slog.LevelWarn
	}
	httpLogger().Log(ctx, level, msg, fields...)
}

func outcomeOf(status int) string {
	if status >= http.StatusBadRequest {
		return "failure"
	}
	return "success"
}

func logHTTPOperationError(ctx context.Context, operation string, status int, code, message string, err error) {
	fields := []any{
		"operation", operation,
		"outcome", "failure",
		"status_code", status,
		"error_code", code,
		"message", message,
		"request_id", requestIDFromContext(ctx),
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	logByStatus(ctx, status, "http operation failed", fields...)
}

// accessLogMiddleware emits one line per request. The route pattern is logged
// instead of the raw path so session and device IDs stay out of the logs.
func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logByStatus(r.Context(), status, "http request completed",
			"operation", "http_request",
			"outcome", outcomeOf(status),
			"method", r.Method,
			"route", routePattern(r),
			"status_code", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestIDFromContext(r.Context()),
		)
	})
}
