package middleware

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jenezis/harmonizer/internal/httputil"
)

// JSONBody guards request bodies. Bodies declared larger than maxBytes are
// rejected with 413 before reading; undeclared ones are capped while read.
// Non-empty bodies must be application/json.
func JSONBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := c.Request
		if req.Body == nil || req.Body == http.NoBody {
			c.Next()
			return
		}

		if req.ContentLength > maxBytes {
			httputil.RespondError(c, http.StatusRequestEntityTooLarge, httputil.CodeTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", maxBytes))
			return
		}

		if req.ContentLength != 0 {
			mt, _, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
			if err != nil || mt != "application/json" {
				httputil.RespondError(c, http.StatusUnsupportedMediaType, httputil.CodeUnsupportedMedia,
					"request body must be application/json")
				return
			}
		}

		req.Body = http.MaxBytesReader(c.Writer, req.Body, maxBytes)
		c.Next()
	}
}
