package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fundi/pkg/logger"
)

// Middleware returns a gin middleware enforcing the given rate limit category.
// A nil limiter disables enforcement entirely.
func Middleware(limiter *RateLimiter, limitType RateLimitType) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		result, err := limiter.IsAllowed(c.Request.Context(), c.ClientIP(), limitType)
		if err != nil {
			// Fail open, but leave a trace
			logger.GetDefault().WithError(err).Warn("rate limiter degraded")
		}
		if result == nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime, 10))

		if !result.Allowed {
			logger.GetDefault().LogRateLimitExceeded(c.Request.Context(), c.ClientIP(), c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, try again later",
			})
			return
		}

		c.Next()
	}
}
