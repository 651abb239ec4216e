package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const rateLimitPrefix = "ratelimit:"

type RateLimiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	logger *logrus.Logger
}

func NewRateLimiter(client redis.Cmdable, limit int64, window time.Duration, logger *logrus.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

// RateLimitMiddleware counts requests per client IP in fixed windows.
// Redis errors let the request through.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	ctx := c.Request.Context()
	key := rateLimitPrefix + c.ClientIP()

	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		rl.logger.WithFields(logrus.Fields{
			"field": "RateLimitMiddleware",
			"key":   key,
		}).Warn("rate limiter unavailable: " + err.Error())
		c.Next()
		return
	}
	if count == 1 {
		if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
			rl.logger.WithFields(logrus.Fields{
				"field": "RateLimitMiddleware",
				"key":   key,
			}).Warn("could not set rate limit window: " + err.Error())
		}
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}
