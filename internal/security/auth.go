package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuthMiddleware validates bearer tokens against token using a
// constant-time comparison. An empty token disables auth (development
// mode); callers running in production should always configure one.
func AuthMiddleware(token string, log zerolog.Logger) gin.HandlerFunc {
	if token == "" {
		log.Warn().Msg("no API auth token configured: all protected endpoints are unauthenticated")
	}

	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed Authorization header"})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// AuthMiddlewareWS is AuthMiddleware for the websocket upgrade route:
// a browser's native WebSocket client cannot set an Authorization
// header on the handshake request, so this also accepts the token as
// a `token` query parameter, falling back to the header form for
// non-browser clients that can set one.
func AuthMiddlewareWS(token string, log zerolog.Logger) gin.HandlerFunc {
	if token == "" {
		log.Warn().Msg("no API auth token configured: the stream endpoint is unauthenticated")
	}

	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		candidate := c.Query("token")
		if candidate == "" {
			auth := c.GetHeader("Authorization")
			parts := strings.SplitN(auth, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				candidate = parts[1]
			}
		}

		if candidate == "" || subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{"error": "missing or invalid token"})
			c.Abort()
			return
		}
		c.Next()
	}
}
