package marketdata

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func respWith(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		resp      *http.Response
		wantType  ErrorType
		retryable bool
	}{
		{"nil response", nil, ErrorUnknown, false},
		{"rate limited", respWith(429, ""), ErrorRateLimited, true},
		{"quota exceeded", respWith(429, `{"error":"API limit reached"}`), ErrorQuotaExceeded, false},
		{"not found", respWith(404, ""), ErrorNotFound, false},
		{"unknown symbol", respWith(404, `{"error":"Symbol not supported"}`), ErrorSymbolUnknown, false},
		{"forbidden", respWith(403, ""), ErrorForbidden, false},
		{"unauthorized", respWith(401, ""), ErrorUnauthorized, false},
		{"bad request", respWith(400, ""), ErrorBadRequest, false},
		{"server error", respWith(503, ""), ErrorServerError, true},
		{"unusual 5xx", respWith(599, ""), ErrorServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.resp)
			if got.Type != tt.wantType {
				t.Errorf("type = %v, want %v", got.Type, tt.wantType)
			}
			if got.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", got.Retryable, tt.retryable)
			}
		})
	}
}

func TestClassifyError_IncludesProviderMessage(t *testing.T) {
	got := ClassifyError(respWith(401, `{"error":"Invalid API key"}`))
	if !strings.Contains(got.Message, "Invalid API key") {
		t.Errorf("message = %q, want provider detail included", got.Message)
	}
}

func TestIsPermanent(t *testing.T) {
	if !IsPermanent(&APIError{Type: ErrorSymbolUnknown}) {
		t.Error("unknown symbol should be permanent")
	}
	if IsPermanent(&APIError{Type: ErrorServerError}) {
		t.Error("server error should not be permanent")
	}
	if IsPermanent(nil) {
		t.Error("nil error should not be permanent")
	}
	if !IsRetryable(&APIError{Type: ErrorRateLimited, Retryable: true}) {
		t.Error("rate limited should be retryable")
	}
}
