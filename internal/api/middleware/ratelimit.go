package middleware

import (
	"net/http"
	"sync"
	"time"

	"bank-api/internal/config"

	"github.com/gin-gonic/gin"
)

type rateLimiter struct {
	requests map[string][]time.Time
	mutex    sync.RWMutex
	limit    int
	window   time.Duration
}

// RateLimit throttles each client IP to cfg.RateLimit.RequestsPerMinute
// requests per cfg.RateLimit.Window, sliding-window style.
func RateLimit(cfg *config.Config) gin.HandlerFunc {
	limiter := &rateLimiter{
		requests: make(map[string][]time.Time),
		limit:    cfg.RateLimit.RequestsPerMinute,
		window:   cfg.RateLimit.Window,
	}
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		limiter.mutex.Lock()
		defer limiter.mutex.Unlock()

		now := time.Now()
		if requests, exists := limiter.requests[clientIP]; exists {
			var valid []time.Time
			for _, reqTime := range requests {
				if now.Sub(reqTime) < limiter.window {
					valid = append(valid, reqTime)
				}
			}
			limiter.requests[clientIP] = valid
		}

		if len(limiter.requests[clientIP]) >= limiter.limit {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded, try again later",
				"retry_after": int(limiter.window.Seconds()),
			})
			c.Abort()
			return
		}

		limiter.requests[clientIP] = append(limiter.requests[clientIP], now)
		c.Next()
	}
}
