package marketdata

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// ErrorType classifies market data provider errors
type ErrorType int

const (
	ErrorUnknown ErrorType = iota
	ErrorRateLimited
	ErrorNotFound
	ErrorForbidden
	ErrorServerError
	ErrorBadRequest
	ErrorUnauthorized
	ErrorSymbolUnknown
	ErrorQuotaExceeded
)

// APIError represents a provider error with additional context
type APIError struct {
	Type       ErrorType
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *APIError) Error() string {
	return e.Message
}

// providerErrorResponse is the JSON body most finance APIs return on errors
type providerErrorResponse struct {
	Error string `json:"error"`
}

// ClassifyError determines the type of error from an HTTP response
func ClassifyError(resp *http.Response) *APIError {
	if resp == nil {
		return &APIError{
			Type:      ErrorUnknown,
			Message:   "nil response",
			Retryable: false,
		}
	}

	var bodyText string
	var provErr providerErrorResponse
	if resp.Body != nil {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err == nil {
			bodyText = string(bodyBytes)
			_ = json.Unmarshal(bodyBytes, &provErr)
		}
		// Body is consumed; caller should not read it again
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Type:       ErrorUnknown,
		Retryable:  false,
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		apiErr.Type = ErrorRateLimited
		apiErr.Message = "rate limited by market data provider"
		apiErr.Retryable = true

		if strings.Contains(bodyText, "limit reached") {
			apiErr.Type = ErrorQuotaExceeded
			apiErr.Message = "provider API quota exceeded"
			apiErr.Retryable = false
		}

	case http.StatusNotFound:
		apiErr.Type = ErrorNotFound
		apiErr.Message = "resource not found (404)"

		if strings.Contains(strings.ToLower(bodyText), "symbol") {
			apiErr.Type = ErrorSymbolUnknown
			apiErr.Message = "symbol not recognized by provider"
		}

	case http.StatusForbidden:
		apiErr.Type = ErrorForbidden
		apiErr.Message = "forbidden (403) - plan may not include this endpoint"

	case http.StatusUnauthorized:
		apiErr.Type = ErrorUnauthorized
		apiErr.Message = "unauthorized (401) - check MARKET_API_KEY"

	case http.StatusBadRequest:
		apiErr.Type = ErrorBadRequest
		apiErr.Message = "bad request (400)"

	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		apiErr.Type = ErrorServerError
		apiErr.Message = "provider server error (5xx)"
		apiErr.Retryable = true

	default:
		if resp.StatusCode >= 500 {
			apiErr.Type = ErrorServerError
			apiErr.Message = "server error"
			apiErr.Retryable = true
		} else if resp.StatusCode >= 400 {
			apiErr.Type = ErrorBadRequest
			apiErr.Message = "client error"
		}
	}

	if provErr.Error != "" {
		apiErr.Message += ": " + provErr.Error
	}

	return apiErr
}

// IsRetryable checks if an error should be retried
func IsRetryable(err *APIError) bool {
	return err != nil && err.Retryable
}

// IsPermanent checks if an error is permanent (should not be retried)
func IsPermanent(err *APIError) bool {
	if err == nil {
		return false
	}
	return err.Type == ErrorNotFound ||
		err.Type == ErrorSymbolUnknown ||
		err.Type == ErrorQuotaExceeded ||
		err.Type == ErrorBadRequest ||
		err.Type == ErrorForbidden
}
