// Package middleware provides the HTTP middleware chain: request ids, panic
// recovery, and per-client rate limiting. Error bodies use the same JSON
// envelope as the handlers.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/audioforge/audioforge/internal/errors"
)

// ErrorResponse is the JSON envelope middleware writes on failures.
type ErrorResponse = apperrors.HTTPErrorResponse

// RequestIDHeader is the header carrying the client-supplied request id.
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a request id to the context and response. A
// client-supplied id is honored; otherwise one is generated.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := apperrors.ContextWithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
