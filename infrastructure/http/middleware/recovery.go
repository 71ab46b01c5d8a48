package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/civiport/civiport/infrastructure/http/response"
	"github.com/civiport/civiport/infrastructure/service/logger"
)

// RecoveryMiddleware converts handler panics into 500 responses so a single
// bad request cannot take the server down.
func RecoveryMiddleware(next http.Handler, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error(r.Context(), "Panic recovered in HTTP handler", nil, map[string]interface{}{
					"panic":  rec,
					"method": r.Method,
					"path":   r.URL.Path,
					"stack":  string(debug.Stack()),
				})
				response.InternalServerError(w, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
