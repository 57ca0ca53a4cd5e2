// Package middleware holds HTTP middleware shared by the HTML pages and the API.
package middleware

import "github.com/gin-gonic/gin"

// SecureHeaders sets browser hardening headers on every response
func SecureHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}
