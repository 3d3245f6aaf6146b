package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyedRateLimiter stores a token bucket per key (client IP or user id).
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	b        int
}

// NewKeyedRateLimiter creates a limiter allowing r events per second with
// bursts of b for every key.
func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		b:        b,
	}
}

// Limiter returns the bucket for key, creating it on first use.
func (l *KeyedRateLimiter) Limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.r, l.b)
		l.limiters[key] = limiter
	}
	return limiter
}

// Allow reports whether one more event for key fits in its bucket.
func (l *KeyedRateLimiter) Allow(key string) bool {
	return l.Limiter(key).Allow()
}

// RateLimiter limits requests per client IP.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	return limitBy(NewKeyedRateLimiter(r, b), func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// UserRateLimiter limits requests per authenticated user, falling back to
// the client IP. It must run after RequireAuth.
func UserRateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	return limitBy(NewKeyedRateLimiter(r, b), func(c *gin.Context) string {
		if id, ok := UserID(c); ok {
			return "user:" + id.String()
		}
		return "ip:" + c.ClientIP()
	})
}

func limitBy(limiter *KeyedRateLimiter, key func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(key(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
