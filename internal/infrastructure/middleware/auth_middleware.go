package middleware

import (
	"net/http"
	"strings"

	"telesignal/internal/core/services"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the Bearer token and stores the principal in
// the request context for the lifecycle handlers.
func AuthMiddleware(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("display_name", claims.DisplayName)
		c.Next()
	}
}

// UserID pulls the authenticated principal id set by AuthMiddleware.
func UserID(c *gin.Context) (int64, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := value.(int64)
	return id, ok
}

// DisplayName pulls the principal's display name set by AuthMiddleware.
func DisplayName(c *gin.Context) string {
	value, exists := c.Get("display_name")
	if !exists {
		return ""
	}
	name, _ := value.(string)
	return name
}
