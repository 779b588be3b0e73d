package middleware

import (
	"net/http"
	"strings"

	"blindbox/internal/service"

	"github.com/gin-gonic/gin"
)

const accountIDKey = "user_id"

// JWT requires a valid "Authorization: Bearer <token>" header and stores the
// account id in the context.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		accountID, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(accountIDKey, accountID)
		c.Next()
	}
}

// AdminOnly rejects accounts for which isAdmin is false. Runs after JWT.
func AdminOnly(isAdmin func(int64) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := AccountID(c)
		if !ok || !isAdmin(accountID) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

// AccountID returns the account id stored by JWT.
func AccountID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(accountIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
