// Package httputil provides shared HTTP response helpers.
package httputil

import (
	"github.com/gin-gonic/gin"

	"github.com/jenezis/harmonizer/internal/metrics"
)

// Error codes used in response bodies.
const (
	CodeInvalidRequest   = "invalid_request"
	CodeInternal         = "internal_error"
	CodeUnauthorized     = "unauthorized"
	CodeRateLimited      = "rate_limited"
	CodeUnavailable      = "unavailable"
	CodeTooLarge         = "payload_too_large"
	CodeUnsupportedMedia = "unsupported_media_type"
)

// RequestIDKey is the gin context key holding the request ID.
const RequestIDKey = "request_id"

// RequestID returns the ID assigned to the request, or "".
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// RespondError writes a standardized JSON error response, counts it, and
// aborts the request.
func RespondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()

	c.AbortWithStatusJSON(status, ErrorBody{
		Code:      code,
		Message:   message,
		RequestID: RequestID(c),
	})
}
