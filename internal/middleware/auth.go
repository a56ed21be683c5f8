package middleware

import (
	"net/http"

	"github.com/getmentor/getmentor-sessions/pkg/jwt"
	"github.com/getmentor/getmentor-sessions/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// InternalTokenHeader carries the token of upstream services calling the internal API
const InternalTokenHeader = "x-internal-sessions-api-auth-token"

// InternalAPIAuthMiddleware validates the internal API token
func InternalAPIAuthMiddleware(validTokens ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(InternalTokenHeader)

		if token == "" {
			logger.Warn("Missing internal API token",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing internal API token", "code": "unauthorized"})
			return
		}

		valid := false
		for _, validToken := range validTokens {
			if validToken != "" && jwt.TimingSafeCompare(token, validToken) {
				valid = true
				break
			}
		}

		if !valid {
			logger.Warn("Invalid internal API token",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid internal API token", "code": "unauthorized"})
			return
		}

		c.Next()
	}
}
