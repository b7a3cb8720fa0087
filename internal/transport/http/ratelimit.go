package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const loginAttemptsPerMinute = 10

// rateLimiter is a fixed one-minute window counter keyed by client IP.
type rateLimiter struct {
	limit int
	now   func() time.Time

	mu          sync.Mutex
	windowStart time.Time
	counters    map[string]int
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		limit:    limit,
		now:      time.Now,
		counters: make(map[string]int),
	}
}

func (r *rateLimiter) allow(key string) bool {
	if r == nil || r.limit <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.windowStart) >= time.Minute {
		r.windowStart = now
		clear(r.counters)
	}
	r.counters[key]++
	return r.counters[key] <= r.limit
}

// Middleware rejects requests over the limit with 429.
func (r *rateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many requests"})
			return
		}
		c.Next()
	}
}
