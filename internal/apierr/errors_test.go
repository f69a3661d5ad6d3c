package apierr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tblake/finboard/backend/internal/logger"
)

func TestErrorInterface(t *testing.T) {
	err := New(ErrSystemInternal, "something broke", http.StatusInternalServerError)
	if err.Error() != "SYSTEM_INTERNAL: something broke" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Status() != http.StatusInternalServerError {
		t.Errorf("Status() = %d", err.Status())
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, QuoteInvalidSymbol("$$bad$$"))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Error.Code != ErrQuoteInvalidSymbol {
		t.Errorf("code = %q", resp.Error.Code)
	}
	if resp.Error.Details["symbol"] != "$$bad$$" {
		t.Errorf("details = %v", resp.Error.Details)
	}
}

func TestWriteErrorWithContext(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/quotes/AAPL", nil)
	ctx := context.WithValue(req.Context(), logger.RequestIDKey, "req-42")
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	WriteErrorWithContext(rr, req, SystemDatabase(""))

	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Error.RequestID != "req-42" {
		t.Errorf("request_id = %q, want req-42", resp.Error.RequestID)
	}
}

func TestRateLimited(t *testing.T) {
	err := RateLimited("market", 4200)
	if err.Status() != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", err.Status())
	}
	if err.Details["retry_after_ms"] != int64(4200) {
		t.Errorf("retry_after_ms = %v", err.Details["retry_after_ms"])
	}
	if err.Details["endpoint"] != "market" {
		t.Errorf("endpoint = %v", err.Details["endpoint"])
	}
}

func TestHelperStatuses(t *testing.T) {
	tests := []struct {
		err    *Error
		status int
	}{
		{AuthMissing(""), http.StatusUnauthorized},
		{AuthForbidden(""), http.StatusForbidden},
		{QuoteNotFound("TSLA"), http.StatusNotFound},
		{QuoteUpstreamFailed(""), http.StatusBadGateway},
		{QuoteUnavailable(), http.StatusServiceUnavailable},
		{AlertNotFound(), http.StatusNotFound},
		{WatchlistConflict("AAPL"), http.StatusConflict},
		{ValidationInvalidJSON(), http.StatusBadRequest},
		{SystemTimeout(""), http.StatusRequestTimeout},
	}
	for _, tt := range tests {
		if tt.err.Status() != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.err.Code, tt.err.Status(), tt.status)
		}
	}
}
