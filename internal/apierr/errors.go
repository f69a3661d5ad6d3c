package apierr

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tblake/finboard/backend/internal/logger"
)

// ErrorCode represents a structured error code
type ErrorCode string

// Error code constants organized by category
const (
	// AUTH_ - Authentication and authorization errors
	ErrAuthMissing   ErrorCode = "AUTH_MISSING"
	ErrAuthInvalid   ErrorCode = "AUTH_INVALID"
	ErrAuthForbidden ErrorCode = "AUTH_FORBIDDEN"

	// QUOTE_ - Market data errors
	ErrQuoteInvalidSymbol ErrorCode = "QUOTE_INVALID_SYMBOL"
	ErrQuoteNotFound      ErrorCode = "QUOTE_NOT_FOUND"
	ErrQuoteUpstream      ErrorCode = "QUOTE_UPSTREAM_FAILED"
	ErrQuoteUnavailable   ErrorCode = "QUOTE_UNAVAILABLE"

	// ALERT_ - Price alert errors
	ErrAlertNotFound ErrorCode = "ALERT_NOT_FOUND"
	ErrAlertInvalid  ErrorCode = "ALERT_INVALID"

	// WATCHLIST_ - Watchlist errors
	ErrWatchlistNotFound ErrorCode = "WATCHLIST_NOT_FOUND"
	ErrWatchlistConflict ErrorCode = "WATCHLIST_CONFLICT"

	// SYSTEM_ - System and server errors
	ErrSystemInternal    ErrorCode = "SYSTEM_INTERNAL"
	ErrSystemDatabase    ErrorCode = "SYSTEM_DATABASE"
	ErrSystemUnavailable ErrorCode = "SYSTEM_UNAVAILABLE"
	ErrSystemTimeout     ErrorCode = "SYSTEM_TIMEOUT"

	// VALIDATION_ - Request validation errors
	ErrValidationInvalidJSON  ErrorCode = "VALIDATION_INVALID_JSON"
	ErrValidationMissingField ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrValidationInvalidValue ErrorCode = "VALIDATION_INVALID_VALUE"

	// RESOURCE_ - Resource errors
	ErrResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"

	// RATE_LIMIT_ - Rate limiting errors
	ErrRateLimited ErrorCode = "RATE_LIMIT_EXCEEDED"
)

// Error represents a structured API error
type Error struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	status    int                    // HTTP status code (not serialized)
}

// ErrorResponse is the top-level error response wrapper
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// New creates a new API error
func New(code ErrorCode, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		status:  status,
	}
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// WithRequestID adds a request ID to the error
func (e *Error) WithRequestID(requestID string) *Error {
	e.RequestID = requestID
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Status returns the HTTP status code
func (e *Error) Status() int {
	return e.status
}

// WriteError writes a structured error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	json.NewEncoder(w).Encode(ErrorResponse{Error: err})
}

// Helper functions for common errors

// AuthMissing creates an authentication missing error
func AuthMissing(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return New(ErrAuthMissing, message, http.StatusUnauthorized)
}

// AuthInvalid creates an invalid authentication error
func AuthInvalid(message string) *Error {
	if message == "" {
		message = "Invalid authentication credentials"
	}
	return New(ErrAuthInvalid, message, http.StatusUnauthorized)
}

// AuthForbidden creates a forbidden error
func AuthForbidden(message string) *Error {
	if message == "" {
		message = "Access forbidden"
	}
	return New(ErrAuthForbidden, message, http.StatusForbidden)
}

// QuoteInvalidSymbol creates an invalid symbol error
func QuoteInvalidSymbol(symbol string) *Error {
	return New(ErrQuoteInvalidSymbol, "Invalid ticker symbol", http.StatusBadRequest).
		WithDetails(map[string]interface{}{"symbol": symbol})
}

// QuoteNotFound creates a quote not found error
func QuoteNotFound(symbol string) *Error {
	return New(ErrQuoteNotFound, "No quote available for symbol", http.StatusNotFound).
		WithDetails(map[string]interface{}{"symbol": symbol})
}

// QuoteUpstreamFailed creates an upstream provider failure error
func QuoteUpstreamFailed(message string) *Error {
	if message == "" {
		message = "Market data provider request failed"
	}
	return New(ErrQuoteUpstream, message, http.StatusBadGateway)
}

// QuoteUnavailable creates a temporary unavailability error, used when the
// circuit breaker to the provider is open.
func QuoteUnavailable() *Error {
	return New(ErrQuoteUnavailable, "Market data temporarily unavailable", http.StatusServiceUnavailable)
}

// AlertNotFound creates an alert not found error
func AlertNotFound() *Error {
	return New(ErrAlertNotFound, "Alert not found", http.StatusNotFound)
}

// AlertInvalid creates an invalid alert error
func AlertInvalid(message string) *Error {
	if message == "" {
		message = "Invalid alert definition"
	}
	return New(ErrAlertInvalid, message, http.StatusBadRequest)
}

// WatchlistNotFound creates a watchlist not found error
func WatchlistNotFound() *Error {
	return New(ErrWatchlistNotFound, "Watchlist entry not found", http.StatusNotFound)
}

// WatchlistConflict creates a duplicate watchlist entry error
func WatchlistConflict(symbol string) *Error {
	return New(ErrWatchlistConflict, "Symbol already on watchlist", http.StatusConflict).
		WithDetails(map[string]interface{}{"symbol": symbol})
}

// SystemInternal creates an internal server error
func SystemInternal(message string) *Error {
	if message == "" {
		message = "Internal server error"
	}
	return New(ErrSystemInternal, message, http.StatusInternalServerError)
}

// SystemDatabase creates a database error
func SystemDatabase(message string) *Error {
	if message == "" {
		message = "Database error"
	}
	return New(ErrSystemDatabase, message, http.StatusInternalServerError)
}

// SystemUnavailable creates a service unavailable error
func SystemUnavailable(message string) *Error {
	if message == "" {
		message = "Service unavailable"
	}
	return New(ErrSystemUnavailable, message, http.StatusServiceUnavailable)
}

// SystemTimeout creates a system timeout error
func SystemTimeout(message string) *Error {
	if message == "" {
		message = "Request timeout"
	}
	return New(ErrSystemTimeout, message, http.StatusRequestTimeout)
}

// ValidationInvalidJSON creates an invalid JSON error
func ValidationInvalidJSON() *Error {
	return New(ErrValidationInvalidJSON, "Invalid JSON request body", http.StatusBadRequest)
}

// ValidationMissingField creates a missing field error
func ValidationMissingField(field string) *Error {
	return New(ErrValidationMissingField, "Missing required field: "+field, http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

// ValidationInvalidValue creates an invalid value error
func ValidationInvalidValue(field string, message string) *Error {
	if message == "" {
		message = "Invalid value for field: " + field
	}
	return New(ErrValidationInvalidValue, message, http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

// ResourceNotFound creates a resource not found error
func ResourceNotFound(resourceType string) *Error {
	return New(ErrResourceNotFound, resourceType+" not found", http.StatusNotFound).
		WithDetails(map[string]interface{}{"resource_type": resourceType})
}

// RateLimited creates a rate limit exceeded error carrying retry timing.
// The middleware sets the Retry-After header; retry_after_ms is duplicated in
// the body for clients that cannot read headers.
func RateLimited(endpoint string, retryAfterMs int64) *Error {
	return New(ErrRateLimited, "Rate limit exceeded - too many requests", http.StatusTooManyRequests).
		WithDetails(map[string]interface{}{
			"endpoint":       endpoint,
			"retry_after_ms": retryAfterMs,
		})
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}

// WriteErrorWithContext writes a structured error response with request ID from context
func WriteErrorWithContext(w http.ResponseWriter, r *http.Request, err *Error) {
	if reqID := GetRequestID(r.Context()); reqID != "" {
		err = err.WithRequestID(reqID)
	}
	WriteError(w, err)
}
