package security

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery replaces gin's default recovery middleware. gin.Recovery()
// dumps the raw request line — including the query string — into its
// panic log, and only redacts the Authorization header; that leaks the
// websocket stream's `?token=` bearer credential (AuthMiddlewareWS)
// into log storage on any panic. This logs method, path, and client IP
// only, never the query string.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered interface{}) {
		log.Error().
			Interface("panic", recovered).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("client_ip", c.ClientIP()).
			Msg("panic recovered")
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}
