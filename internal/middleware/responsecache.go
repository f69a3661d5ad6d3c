package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/tblake/finboard/backend/internal/cache"
)

// cacheRecorder buffers a response so a successful body can be stored.
type cacheRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (r *cacheRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *cacheRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

// ResponseCache returns a middleware that caches successful GET responses in
// a ByteCache, keyed by the full request URI. Intended for heavy read-only
// payloads (candle history); mutating routes must not be wrapped.
func ResponseCache(c cache.ByteCache, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := r.URL.RequestURI()
			if body, found := c.Get(key); found {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(http.StatusOK)
				w.Write(body)
				return
			}

			w.Header().Set("X-Cache", "MISS")
			rec := &cacheRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.status == http.StatusOK && rec.buf.Len() > 0 {
				c.Set(key, rec.buf.Bytes(), ttl)
			}
		})
	}
}
