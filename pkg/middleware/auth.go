package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthMiddleware trusts the identity headers set by the upstream auth
// proxy: X-User-Id and X-User-Tier arrive precomputed, this service
// does not verify credentials itself.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-Id")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "missing identity",
				},
				"requestId": uuid.New().String(),
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			return
		}

		tier := c.GetHeader("X-User-Tier")
		if tier == "" {
			tier = "free"
		}

		c.Set("user_id", userID)
		c.Set("user_tier", tier)
		c.Next()
	}
}
