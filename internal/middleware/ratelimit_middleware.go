package middleware

import (
	"net/http"
	"strconv"

	"echolink/internal/redis"
	"echolink/internal/services"
	"echolink/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// CallRateLimitMiddleware limits call initiations per user. Apply it after
// the auth middleware so the user id is on the request context.
func CallRateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		result, err := limiter.AllowCall(c.Request.Context(), userID.String())
		if err != nil {
			// Redis being down should not take call setup with it
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("call rate limit exceeded", "RATE_LIMITED"))
			c.Abort()
			return
		}

		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.Itoa(int(result.ResetIn.Seconds())))
}
