package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/audioforge/audioforge/internal/errors"
	"github.com/audioforge/audioforge/internal/observability"
)

// Recovery converts handler panics into a JSON 500 response. The connection
// stays usable for subsequent requests.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			observability.ServerLogger.Error("handler panic",
				zap.Any("panic", rec),
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
				zap.Stack("stack"))
			apperrors.Respond(w, r, http.StatusInternalServerError,
				apperrors.CodeInternal, fmt.Sprintf("panic: %v", rec))
		}()
		next.ServeHTTP(w, r)
	})
}
