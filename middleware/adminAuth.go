package middleware

import (
	"net/http"
	"strings"

	"github.com/ntolkachev-gh/clientera-telegram-bot/utils"

	"github.com/gin-gonic/gin"
)

// JWTAuthAdminMiddleware guards the operational views behind the admin JWT
// issued at login.
func JWTAuthAdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		subject, err := utils.ExtractIDFromToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized admin access"})
			return
		}

		c.Set("adminUser", subject)
		c.Set("isAdmin", true)
		c.Next()
	}
}
