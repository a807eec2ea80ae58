package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"Chatrigo/pkg/config"
	tokenstore "Chatrigo/pkg/token"
)

const (
	ContextUserIDKey   = "current_user_id"
	ContextJTIKey      = "current_jti"
	ContextTokenExpKey = "current_token_exp"
)

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		claims, err := tokenstore.Parse(config.JWTSecret, parts[1])
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, tokenstore.ErrRevoked) {
				msg = "Token has been revoked (logout)"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextJTIKey, claims.JTI)
		c.Set(ContextTokenExpKey, claims.ExpiresAt)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id, or "" outside
// AuthMiddleware.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}

// CurrentToken returns the jti and expiry of the request's access token.
func CurrentToken(c *gin.Context) (string, time.Time) {
	return c.GetString(ContextJTIKey), c.GetTime(ContextTokenExpKey)
}
