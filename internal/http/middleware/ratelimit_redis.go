package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedis shares an already connected client with the limiters. A nil
// client switches them to the in-process fallback.
func InitRedis(client *redis.Client) {
	redisClient = client
	resetLocal()
}

// incr counts one hit for key in the current fixed window.
// Redis errors fail open: ok is false and the caller lets the request through.
func incr(ctx context.Context, key string, window time.Duration) (n int64, ok bool) {
	if redisClient == nil {
		return localIncr(key, window, time.Now()), true
	}

	val, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, false
	}
	if val == 1 {
		redisClient.Expire(ctx, key, window)
	}
	return val, true
}

// RedisRateLimit implements a fixed-window limiter per client IP using Redis INCR/EXPIRE.
// key format: rl:<window_seconds>:<identifier>
func RedisRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + c.ClientIP()

		val, ok := incr(c.Request.Context(), key, window)
		if !ok {
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
