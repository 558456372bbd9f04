package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/swiftbasket/api/internal/platform/httpx"
	"github.com/swiftbasket/api/internal/services"
)

const maxBodySize = 64 * 1024

var errEmptyBody = errors.New("request body is empty")

// writeServiceError maps the service error taxonomy onto the JSON error envelope.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	if stockErr, ok := services.AsInsufficientStock(err); ok {
		httpx.WriteError(ctx, w, httpx.
			NewError("insufficient_stock", "one or more items are out of stock", http.StatusConflict).
			WithDetails(map[string]any{"violations": stockErr.Violations}))
		return
	}

	switch {
	case errors.Is(err, services.ErrInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrAttemptLimitExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("attempt_limit_exceeded", "negotiation attempt limit reached", http.StatusTooManyRequests))
	case errors.Is(err, services.ErrInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrUpstreamUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("upstream_unavailable", "a dependency is unavailable; retry shortly", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "request failed", http.StatusInternalServerError))
	}
}

// decodeJSON parses the request body into dst, rejecting oversized or
// malformed payloads with a client error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// actorFromRequest extracts the authenticated actor id, writing a 401 when absent.
func actorFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	identity, ok := identityUID(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return "", false
	}
	return identity, true
}

func trimPathParam(value string) string {
	return strings.TrimSpace(value)
}
