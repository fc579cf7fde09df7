package middleware

import "github.com/gin-gonic/gin"

// NoStore marks responses as uncacheable and sets the baseline API hardening
// headers. It is applied to the operator endpoints, whose payloads reflect
// live pipeline state.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		h.Set("Pragma", "no-cache")
		c.Next()
	}
}
