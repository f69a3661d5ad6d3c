package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// compressResponseWriter wraps http.ResponseWriter to route the body through
// a compressing writer.
type compressResponseWriter struct {
	io.Writer
	http.ResponseWriter
	wroteHeader bool
}

func (w *compressResponseWriter) WriteHeader(status int) {
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *compressResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.Writer.Write(b)
}

// Compress returns a middleware that compresses responses with brotli when
// the client supports it, falling back to gzip. Writers are pooled to reduce
// allocations.
func Compress(next http.Handler) http.Handler {
	brPool := sync.Pool{
		New: func() interface{} {
			return brotli.NewWriterLevel(io.Discard, brotli.DefaultCompression)
		},
	}
	gzPool := sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept := r.Header.Get("Accept-Encoding")

		switch {
		case strings.Contains(accept, "br"):
			br := brPool.Get().(*brotli.Writer)
			defer brPool.Put(br)
			br.Reset(w)
			defer br.Close()

			w.Header().Set("Content-Encoding", "br")
			w.Header().Del("Content-Length")
			next.ServeHTTP(&compressResponseWriter{Writer: br, ResponseWriter: w}, r)

		case strings.Contains(accept, "gzip"):
			gz := gzPool.Get().(*gzip.Writer)
			defer gzPool.Put(gz)
			gz.Reset(w)
			defer gz.Close()

			w.Header().Set("Content-Encoding", "gzip")
			w.Header().Del("Content-Length")
			next.ServeHTTP(&compressResponseWriter{Writer: gz, ResponseWriter: w}, r)

		default:
			next.ServeHTTP(w, r)
		}
	})
}
