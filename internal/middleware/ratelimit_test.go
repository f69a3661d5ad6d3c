package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/tblake/finboard/backend/internal/apierr"
	"github.com/tblake/finboard/backend/internal/ratelimit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_HeadersOnSuccess(t *testing.T) {
	m := ratelimit.NewManager(ratelimit.Config{Window: time.Minute, Max: 5})
	defer m.Stop()

	handler := RateLimit(m, "api")(okHandler())

	req := httptest.NewRequest("GET", "/api/quotes/AAPL", nil)
	req.Header.Set("X-Real-IP", "203.0.113.1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get(HeaderRateLimitLimit); got != "5" {
		t.Errorf("limit header = %q, want 5", got)
	}
	if got := rr.Header().Get(HeaderRateLimitRemaining); got != "4" {
		t.Errorf("remaining header = %q, want 4", got)
	}
	if rr.Header().Get(HeaderRateLimitReset) == "" {
		t.Error("reset header missing")
	}
}

func TestRateLimit_DenialReturns429(t *testing.T) {
	m := ratelimit.NewManager(ratelimit.Config{Window: time.Minute, Max: 1})
	defer m.Stop()

	handler := RateLimit(m, "api")(okHandler())

	req := httptest.NewRequest("GET", "/api/quotes/AAPL", nil)
	req.Header.Set("X-Real-IP", "203.0.113.1")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rr.Code)
	}

	retryAfter, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	if err != nil || retryAfter <= 0 {
		t.Errorf("Retry-After = %q, want positive integer seconds", rr.Header().Get("Retry-After"))
	}
	if got := rr.Header().Get(HeaderRateLimitRemaining); got != "0" {
		t.Errorf("remaining header = %q, want 0", got)
	}

	var resp apierr.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if resp.Error.Code != apierr.ErrRateLimited {
		t.Errorf("error code = %q", resp.Error.Code)
	}
}

func TestRateLimit_SeparateClients(t *testing.T) {
	m := ratelimit.NewManager(ratelimit.Config{Window: time.Minute, Max: 1})
	defer m.Stop()

	handler := RateLimit(m, "api")(okHandler())

	first := httptest.NewRequest("GET", "/", nil)
	first.Header.Set("X-Forwarded-For", "203.0.113.1")
	second := httptest.NewRequest("GET", "/", nil)
	second.Header.Set("X-Forwarded-For", "203.0.113.2")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, first)
	if rr.Code != http.StatusOK {
		t.Errorf("client 1: status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, second)
	if rr.Code != http.StatusOK {
		t.Errorf("client 2 should not share client 1's window: status = %d", rr.Code)
	}
}

func TestRateLimit_UnidentifiedClientsShareBucket(t *testing.T) {
	m := ratelimit.NewManager(ratelimit.Config{Window: time.Minute, Max: 1})
	defer m.Stop()

	handler := RateLimit(m, "api")(okHandler())

	// Neither request carries a client address header, so both fall into the
	// shared "unknown" bucket
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("first anonymous request: status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("second anonymous request: status = %d, want 429", rr.Code)
	}
}
