package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "idproof/pkg/domain-errors"
	"idproof/pkg/platform/httputil"
)

// RequireAPIKey rejects requests whose X-Api-Key header does not match the
// configured key. Comparison is constant time; the key value is never
// logged.
func RequireAPIKey(apiKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-Api-Key")
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				logger.WarnContext(r.Context(), "request rejected - missing or invalid API key",
					"request_id", GetRequestID(r.Context()),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "a valid X-Api-Key header is required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
