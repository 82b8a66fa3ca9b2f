package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/httputil"
)

// RequestIDHeader is the HTTP header used to propagate the request ID.
const RequestIDHeader = "X-Request-ID"

const entryKey = "log_entry"

// RequestID assigns each request an ID and a logger entry carrying it. A
// client-supplied X-Request-ID is adopted when it parses as a UUID so that
// callers can correlate retries; anything else is replaced.
func RequestID(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set(httputil.RequestIDKey, id)
		c.Set(entryKey, log.WithField("request_id", id))
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// Entry returns the request-scoped logger set by RequestID, falling back to
// log when the middleware is not installed.
func Entry(c *gin.Context, log *logrus.Logger) *logrus.Entry {
	if v, ok := c.Get(entryKey); ok {
		if e, ok := v.(*logrus.Entry); ok {
			return e
		}
	}

	return logrus.NewEntry(log)
}
