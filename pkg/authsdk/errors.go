package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/tabauth/pkg/httpx"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	ErrorCodeInvalidRequest      = "invalid_request"
	ErrorCodeInvalidCredentials  = "invalid_credentials"
	ErrorCodeRefreshDenied       = "refresh_denied"
	ErrorCodeInvalidToken        = "invalid_token"
	ErrorCodeUnauthorized        = "unauthorized"
	ErrorCodeInsufficientRole    = "insufficient_role"
	ErrorCodeUserNotFound        = "user_not_found"
	ErrorCodeUpstreamUnavailable = "upstream_unavailable"
	ErrorCodeRateLimitExceeded   = "rate_limit_exceeded"
	ErrorCodeServerError         = "server_error"
)

// ============================================================================
// APIError
// ============================================================================

// APIError is an error reply from the service. The server writes it and the
// SDK client decodes it back, so both sides share one shape.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the machine readable error code
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Description)
}

// Is matches on Code, so errors.Is(err, ErrRefreshDenied) holds for any
// decoded refresh_denied reply whatever its description.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:            e.Code,
		ErrorDescription: e.Description,
	})
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	// ErrInvalidRequest is returned when the body is missing, malformed or
	// lacks a required field.
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidCredentials is the single answer to any failed login. It never
	// says whether the username or the password was wrong.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid username or password",
	}

	// ErrRefreshDenied is the single answer to any rejected refresh.
	ErrRefreshDenied = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeRefreshDenied,
		Description: "refresh denied, please re-authenticate",
	}

	// ErrInvalidToken is returned when a presented access token fails to verify.
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid or expired",
	}

	// ErrUnauthorized is returned when a protected route is called anonymously.
	ErrUnauthorized = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnauthorized,
		Description: "authentication required",
	}

	// ErrInsufficientRole is returned when the caller's role is below the
	// route's minimum.
	ErrInsufficientRole = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeInsufficientRole,
		Description: "role too low for this resource",
	}

	// ErrUserNotFound is returned by administrative calls naming an unknown user.
	ErrUserNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeUserNotFound,
		Description: "user not found",
	}

	// ErrUpstreamUnavailable is returned when the user directory or session
	// store did not answer in time. The request may be retried.
	ErrUpstreamUnavailable = &APIError{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        ErrorCodeUpstreamUnavailable,
		Description: "a backing service is unavailable, try again later",
	}

	// ErrServerError is returned for anything unexpected.
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns a non-2xx reply into an *APIError. Returns nil for
// success statuses.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	// Fallback: create generic error from status code
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
