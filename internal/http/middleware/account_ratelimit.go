package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// AccountRateLimit limits calls per account (not per IP) within one scope,
// e.g. "redeem". Requires JWT to run first.
func AccountRateLimit(scope string, maxCalls int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := AccountID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		key := "acct_rl:" + scope + ":" + strconv.FormatInt(accountID, 10) + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		val, ok := incr(c.Request.Context(), key, window)
		if !ok {
			c.Header("X-AccountRateLimit-Error", "redis-error")
			c.Next()
			return
		}

		c.Header("X-AccountRateLimit-Limit", strconv.Itoa(maxCalls))
		c.Header("X-AccountRateLimit-Remaining", strconv.FormatInt(max(0, int64(maxCalls)-val), 10))

		if val > int64(maxCalls) {
			RLBlocked.WithLabelValues(scope).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       scope + " rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues(scope).Inc()
		c.Next()
	}
}
