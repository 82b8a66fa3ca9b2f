// Package middleware provides HTTP middleware for the harmonizer API.
package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jenezis/harmonizer/internal/httputil"
	"github.com/jenezis/harmonizer/internal/metrics"
)

// Route classes. Suggest scans every canonical and alias and may call the
// re-rank model, so it gets a tighter budget than lookups.
const (
	ClassDefault = "default"
	ClassSuggest = "suggest"
	ClassAdmin   = "admin"
)

// maxBuckets is the maximum number of tracked client/class pairs.
const maxBuckets = 100_000

// bucketIdleTTL is how long an untouched bucket is kept.
const bucketIdleTTL = 10 * time.Minute

// Limit is a token-bucket budget: Rate tokens per second, holding at most
// Burst.
type Limit struct {
	Rate  float64
	Burst float64
}

// DefaultLimits are the per-client budgets used by the router.
var DefaultLimits = map[string]Limit{
	ClassDefault: {Rate: 100, Burst: 200},
	ClassSuggest: {Rate: 10, Burst: 20},
	ClassAdmin:   {Rate: 0.2, Burst: 3},
}

type bucketKey struct {
	class  string
	client string
}

type bucket struct {
	tokens float64
	last   time.Time
}

// RateLimiter keeps one token bucket per client IP and route class.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[bucketKey]*bucket
	limits  map[string]Limit
	now     func() time.Time
}

// NewRateLimiter creates a RateLimiter for the given class budgets. A
// background goroutine evicts idle buckets until ctx is cancelled.
func NewRateLimiter(ctx context.Context, limits map[string]Limit) *RateLimiter {
	rl := newRateLimiter(limits)
	go rl.cleanupLoop(ctx)

	return rl
}

func newRateLimiter(limits map[string]Limit) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[bucketKey]*bucket),
		limits:  limits,
		now:     time.Now,
	}
}

// take spends one token from the client's bucket for class. When the bucket
// is empty it returns the wait until the next token.
func (rl *RateLimiter) take(class, client string) (bool, time.Duration) {
	limit, ok := rl.limits[class]
	if !ok {
		return true, 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	key := bucketKey{class: class, client: client}

	b, ok := rl.buckets[key]
	if !ok {
		if len(rl.buckets) >= maxBuckets {
			return false, time.Second
		}
		b = &bucket{tokens: limit.Burst, last: now}
		rl.buckets[key] = b
	}

	b.tokens = math.Min(limit.Burst, b.tokens+now.Sub(b.last).Seconds()*limit.Rate)
	b.last = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}

	if limit.Rate <= 0 {
		return false, bucketIdleTTL
	}

	return false, time.Duration((1 - b.tokens) / limit.Rate * float64(time.Second))
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.last) > bucketIdleTTL {
			delete(rl.buckets, key)
		}
	}
}

// Handler returns Gin middleware that charges one token of class per
// request. Rejections carry a Retry-After header in whole seconds.
func (rl *RateLimiter) Handler(class string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// c.ClientIP() ignores X-Forwarded-For because the router trusts no proxies.
		ok, wait := rl.take(class, c.ClientIP())
		if !ok {
			metrics.RateLimited.WithLabelValues(class).Inc()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			httputil.RespondError(c, http.StatusTooManyRequests, httputil.CodeRateLimited, "rate limit exceeded")

			return
		}

		c.Next()
	}
}
