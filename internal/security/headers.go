// Package security implements the response-security middleware, CORS
// allowlisting, bearer-token auth, and address anonymization shared
// across the API surface.
package security

import "github.com/gin-gonic/gin"

// SecurityHeaders sets the fixed response headers spec.md §6 requires
// on every response, plus the API-specific cache-control directive.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Content-Security-Policy", "default-src 'none'; script-src 'self'; style-src 'self'; connect-src 'self'")
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, private")
		c.Next()
	}
}
