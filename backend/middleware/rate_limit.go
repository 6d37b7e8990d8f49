package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP. Each bucket holds rate
// tokens and refills at rate per window.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rate     int           // requests per window
	window   time.Duration // time window
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     requests,
		window:   window,
	}
}

// Allow reports whether the client may make another request now
func (l *RateLimiter) Allow(clientIP string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cl, ok := l.limiters[clientIP]
	if !ok {
		every := rate.Every(l.window / time.Duration(l.rate))
		cl = &clientLimiter{limiter: rate.NewLimiter(every, l.rate)}
		l.limiters[clientIP] = cl
		l.evictIdle(now)
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// evictIdle drops buckets idle for more than a window; they would be full
// again anyway. Must be called with lock held.
func (l *RateLimiter) evictIdle(now time.Time) {
	for ip, cl := range l.limiters {
		if now.Sub(cl.lastSeen) > l.window {
			delete(l.limiters, ip)
		}
	}
}

// RateLimit middleware limits requests per IP
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	if requests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := NewRateLimiter(requests, window)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !limiter.Allow(clientIP) {
			slog.Warn("rate limit exceeded",
				"client_ip", clientIP,
				"request_id", GetRequestID(c),
			)

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
