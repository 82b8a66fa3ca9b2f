package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jenezis/harmonizer/internal/metrics"
)

// Metrics records request count, latency and in-flight requests, labelled by
// route pattern. Scrapes of skipPath are not recorded.
func Metrics(skipPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == skipPath {
			c.Next()
			return
		}

		metrics.RequestsInFlight.Inc()
		defer metrics.RequestsInFlight.Dec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		metrics.RequestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
	}
}
