package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
)

const maxBodyBytes = 1 << 20

var errTrailingJSON = errors.New("request body must contain a single JSON value")

// decodeBody reads exactly one JSON object with no unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("malformed request body: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errTrailingJSON
	}
	return nil
}

func parseIntDefault(raw string, fallback int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		return n
	}
	return fallback
}

// readIP expects middleware.RealIP to have resolved forwarding headers already.
func readIP(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// clientHeaders flattens the request headers for device fingerprinting.
// Credentials never leave the transport.
func clientHeaders(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		lower := strings.ToLower(name)
		if lower == "authorization" || lower == "cookie" || len(values) == 0 {
			continue
		}
		out[lower] = values[0]
	}
	return out
}

// writeFailure logs and renders one error envelope. Every handler error path
// ends here.
func writeFailure(ctx context.Context, w http.ResponseWriter, operation string, status int, code, msg string, err error) {
	logHTTPOperationError(ctx, operation, status, code, msg, err)
	writeError(w, status, code, msg)
}

func writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status, code, msg := mapDomainError(err)
	writeFailure(ctx, w, operation, status, code, msg, err)
}

func writeValidationError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	writeFailure(ctx, w, operation, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), err)
}

func writeMissingBearerError(ctx context.Context, w http.ResponseWriter, operation string) {
	writeFailure(ctx, w, operation, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
}
