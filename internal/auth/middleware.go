package auth

import (
	"net/http"
	"strings"

	"sodabet/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// TokenFromRequest extracts the bearer token from the Authorization
// header, falling back to the "token" query parameter so that browser
// WebSocket clients (which cannot set headers) can authenticate too.
func TokenFromRequest(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return c.Query("token")
}

// AuthMiddleware creates a gin middleware that requires a valid access
// token and stores the authenticated user ID in the context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := TokenFromRequest(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}

		userID, err := jwt.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
