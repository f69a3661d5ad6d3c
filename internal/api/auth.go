package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/tblake/finboard/backend/internal/config"
)

// AdminOnly gates admin routes behind the configured bearer token. When no
// token is configured the routes are unavailable rather than open.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := config.Load()
		if cfg.AdminAPIToken == "" {
			http.Error(w, "admin token not configured", http.StatusServiceUnavailable)
			return
		}
		auth := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(cfg.AdminAPIToken)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
