// CLAUDE:SUMMARY Basic Auth middleware comparing passwords against a bcrypt hash.
package httpapi

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/extpipe/kit"
)

// basicAuth enforces HTTP Basic Auth. Only the password is checked,
// against the configured bcrypt hash; the user part is carried into the
// request context for logging.
func basicAuth(hash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) != nil {
				logger.Warn("auth failed", "remote", r.RemoteAddr, "path", r.URL.Path)
				w.Header().Set("WWW-Authenticate", `Basic realm="extpipe"`)
				writeJSON(w, 401, map[string]string{"error": "unauthorized"})
				return
			}
			ctx := kit.WithUser(r.Context(), user)
			ctx = kit.WithRemoteAddr(ctx, r.RemoteAddr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
