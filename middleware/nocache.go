package middleware

import "github.com/gin-gonic/gin"

// NoStore marks every response as uncacheable. Chat data is per-user and
// changes on every send.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
