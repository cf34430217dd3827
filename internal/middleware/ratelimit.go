package middleware

import (
	"fmt"
	"net/http"
	"time"

	redispkg "github.com/campus-showcase/core/internal/pkg/redis"
	"github.com/gin-gonic/gin"
)

const (
	rateLimitMax    = 50
	rateLimitWindow = time.Second
)

// RateLimit enforces a per-IP limit on anonymous traffic. Signed-in
// users are exempt since their actions are protected by role checks.
func RateLimit(rdb *redispkg.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsAuthenticated(c) {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		windowKey := time.Now().Unix()
		key := fmt.Sprintf("showcase:rate_limit:%s:%d", ip, windowKey)

		count, err := rdb.Raw().Incr(ctx, key).Result()
		if err != nil {
			// redis being down should not take the portal with it
			c.Next()
			return
		}

		if count == 1 {
			rdb.Raw().PExpire(ctx, key, rateLimitWindow+time.Second)
		}

		if count > rateLimitMax {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"ok":      0,
				"code":    http.StatusTooManyRequests,
				"message": "too many requests, slow down",
			})
			return
		}

		c.Next()
	}
}
