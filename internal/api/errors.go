package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jenezis/harmonizer/internal/httputil"
)

// Error codes returned in API error bodies.
const (
	ErrCodeInvalidRequest = httputil.CodeInvalidRequest
	ErrCodeInternalError  = httputil.CodeInternal
	ErrCodeUnauthorized   = httputil.CodeUnauthorized
	ErrCodeRateLimited    = httputil.CodeRateLimited
	ErrCodeUnavailable    = httputil.CodeUnavailable
	ErrCodeTooLarge       = httputil.CodeTooLarge
)

func respondError(c *gin.Context, status int, code, message string) {
	httputil.RespondError(c, status, code, message)
}

// validatable is a request body with its own field checks.
type validatable interface {
	Validate() error
}

// bindRequest decodes the JSON body into req and runs its checks. On failure
// the error response has been written and false is returned.
func bindRequest(c *gin.Context, req validatable) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))

			return false
		}

		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return false
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return false
	}

	return true
}
