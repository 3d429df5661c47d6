package server

import (
	"net/http"
	"time"

	"github.com/vegarwe/skistart-lockedup/internal/shared"
)

const authCookie = "auth_data"

// RequireAuth rejects requests without a valid auth_data cookie. It passes
// everything through when no password is configured.
func (a *API) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.AuthData == "" {
			next.ServeHTTP(w, r)
			return
		}

		c, err := r.Cookie(authCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing auth cookie")
			return
		}
		v, ok := shared.VerifyCookie(a.CookieSecret, c.Value, shared.CookieMaxAge, time.Now())
		if !ok || v != a.AuthData {
			a.logger().Debug("auth rejected", "path", r.URL.Path, "remote", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "bad auth cookie")
			return
		}
		next.ServeHTTP(w, r)
	})
}
