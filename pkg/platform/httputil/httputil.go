// Package httputil is the single translation point from service errors to the
// JSON error envelope returned by every endpoint.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	dErrors "calculation/pkg/domain-errors"
)

const internalErrorMessage = "internal server error"

// ErrorResponse is the envelope written for every failure kind.
type ErrorResponse struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

// WriteError maps err to its status and writes the envelope. Errors without a
// domain code, and internal errors, never expose their message.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorAt(w, err, time.Now())
}

// WriteErrorAt is WriteError with an explicit timestamp, typically the
// request-scoped time.
func WriteErrorAt(w http.ResponseWriter, err error, now time.Time) {
	code := dErrors.CodeOf(err)
	status := dErrors.HTTPStatus(code)

	message := internalErrorMessage
	if de, ok := dErrors.As(err); ok && code != dErrors.CodeInternal {
		message = de.Message
	}

	WriteJSON(w, status, ErrorResponse{
		Status:    status,
		Message:   message,
		Timestamp: now.UTC().Format(time.RFC3339),
	})
}
