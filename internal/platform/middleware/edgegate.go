package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// EdgeGate is the request-rewriting credential gate in front of the public
// site: a fixed shared credential pair checked before anything else runs.
// The password is configured as a bcrypt hash, never in the clear.
// Unauthenticated requests get a challenge and never reach the gateway.
func EdgeGate(user, passwordHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUser, gotPass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(gotUser), []byte(user)) != 1 ||
				bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(gotPass)) != nil {
				logger.WarnContext(r.Context(), "edge gate challenge issued",
					"request_id", GetRequestID(r.Context()),
					"path", r.URL.Path,
				)
				w.Header().Set("WWW-Authenticate", `Basic realm="idproof"`)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
