package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/httputil"
)

// authTimingFloor is the minimum response time for a rejected token.
const authTimingFloor = 50 * time.Millisecond

// enforceTimingFloor sleeps if needed so the response takes at least authTimingFloor.
func enforceTimingFloor(start time.Time) {
	if elapsed := time.Since(start); elapsed < authTimingFloor {
		time.Sleep(authTimingFloor - elapsed)
	}
}

// tokenEqual compares digests so the comparison time does not depend on the
// length of the presented token.
func tokenEqual(presented, expected string) bool {
	a := sha256.Sum256([]byte(presented))
	b := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// TokenAuth returns Gin middleware that requires "Authorization: Bearer <token>".
// An empty token disables the check. When a guard is given, clients that keep
// presenting bad tokens are locked out by address.
func TokenAuth(token string, log *logrus.Logger, guard *BruteForceGuard) gin.HandlerFunc {
	if token == "" {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if c.Writer.Status() == http.StatusUnauthorized {
				enforceTimingFloor(start)
			}
		}()

		client := c.ClientIP()
		if guard != nil && guard.IsBlocked(client) {
			httputil.RespondError(c, http.StatusTooManyRequests, httputil.CodeRateLimited, "too many failed authentication attempts")
			return
		}

		presented := ExtractBearerToken(c)
		if presented == "" {
			httputil.RespondError(c, http.StatusUnauthorized, httputil.CodeUnauthorized, "missing or invalid authorization header")
			return
		}

		if !tokenEqual(presented, token) {
			logAuthFailure(log, c)

			if guard != nil {
				guard.RecordFailure(client)
			}

			httputil.RespondError(c, http.StatusUnauthorized, httputil.CodeUnauthorized, "invalid token")
			return
		}

		if guard != nil {
			guard.Reset(client)
		}

		c.Next()
	}
}

// ExtractBearerToken extracts the token from the Authorization header.
func ExtractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// logAuthFailure logs a failed authentication attempt.
func logAuthFailure(log *logrus.Logger, c *gin.Context) {
	Entry(c, log).WithFields(logrus.Fields{
		"client_ip":  c.ClientIP(),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
	}).Warn("authentication failed: invalid token")
}
