package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiterConfig drives the Redis fixed-window limiter. TierLimits
// overrides Limit per user tier so paid tiers get more headroom.
type RateLimiterConfig struct {
	RedisClient *redis.Client
	Limit       int
	TierLimits  map[string]int
	Window      time.Duration
	KeyPrefix   string
}

// NewRateLimiter limits requests per user within a fixed window using
// Redis INCR + EXPIRE. Limiter errors fail open.
func NewRateLimiter(cfg RateLimiterConfig) gin.HandlerFunc {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl:"
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id := c.GetString("user_id")
		if id == "" {
			id = c.ClientIP()
		}
		key := cfg.KeyPrefix + id

		limit := cfg.Limit
		if tierLimit, ok := cfg.TierLimits[c.GetString("user_tier")]; ok {
			limit = tierLimit
		}

		count, err := cfg.RedisClient.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}

		if count == 1 {
			cfg.RedisClient.Expire(ctx, key, cfg.Window)
		}

		if count > int64(limit) {
			ttl, _ := cfg.RedisClient.TTL(ctx, key).Result()
			reset := int(ttl.Seconds())
			if reset < 0 {
				reset = 0
			}
			c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", reset))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "rate_limited",
					"message": "rate limit exceeded",
				},
				"retryAfterSec": reset,
				"timestamp":     time.Now().UTC().Format(time.RFC3339),
			})
			return
		}

		remaining := limit - int(count)
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		ttl, _ := cfg.RedisClient.TTL(ctx, key).Result()
		reset := int(ttl.Seconds())
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", reset))

		c.Next()
	}
}
