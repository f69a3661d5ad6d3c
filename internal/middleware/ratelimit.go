package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tblake/finboard/backend/internal/apierr"
	"github.com/tblake/finboard/backend/internal/ratelimit"
)

// Rate limit response headers surfaced on every response passing through
// RateLimit, per the API contract.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// RateLimit returns a middleware enforcing the named endpoint policy from the
// manager. Admission metadata is exposed as X-RateLimit-* headers; a denial
// becomes a 429 with a Retry-After header.
func RateLimit(m *ratelimit.Manager, endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := m.CheckRequest(r, endpoint)

			w.Header().Set(HeaderRateLimitLimit, strconv.Itoa(res.Limit))
			w.Header().Set(HeaderRateLimitRemaining, strconv.Itoa(res.Remaining))
			w.Header().Set(HeaderRateLimitReset, strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				// Retry-After is whole seconds, rounded up so clients never
				// retry early
				secs := int64(res.RetryAfter / time.Second)
				if res.RetryAfter%time.Second != 0 {
					secs++
				}
				w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
				apierr.WriteErrorWithContext(w, r, apierr.RateLimited(endpoint, res.RetryAfter.Milliseconds()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
