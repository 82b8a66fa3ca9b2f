package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

// APIError represents a structured error response from the harmonizer API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("harmonizer: %d %s: %s (request_id=%s)", e.StatusCode, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("harmonizer: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

func statusOf(err error) int {
	var e *APIError
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsInvalidRequest returns true if the server rejected the payload (400).
func IsInvalidRequest(err error) bool { return statusOf(err) == 400 }

// IsUnauthorized returns true if the bearer token was missing or wrong (401).
func IsUnauthorized(err error) bool { return statusOf(err) == 401 }

// IsRateLimited returns true if the error is a 429 rate limit.
func IsRateLimited(err error) bool { return statusOf(err) == 429 }

// IsUnavailable returns true for 503, e.g. a failed reload or a server that
// is not ready.
func IsUnavailable(err error) bool { return statusOf(err) == 503 }

// parseAPIError attempts to decode a JSON error body; falls back to raw text.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
		apiErr.Message = string(body)
	}
	return apiErr
}
