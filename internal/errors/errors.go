// Package errors defines the JSON error envelope returned by every API
// endpoint and helpers for writing it.
package errors

import (
	"context"
	"encoding/json"
	"net/http"
)

// Error codes used across the API.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeConflict         = "CONFLICT"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
)

// HTTPErrorDetail is the body of an API error.
type HTTPErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// HTTPErrorResponse is the envelope every API error is wrapped in.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

type requestIDKey struct{}

// ContextWithRequestID stores the request id for error responses.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id, or empty if none was set.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Respond writes the standard error envelope with the given status.
func Respond(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	RespondDetails(w, r, status, code, message, nil)
}

// RespondDetails writes the standard error envelope including a details map.
func RespondDetails(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{
		Error: HTTPErrorDetail{
			Code:      code,
			Message:   message,
			RequestID: RequestIDFromContext(r.Context()),
			Details:   details,
		},
	})
}
