// README: Firebase bearer-token auth; pass-through when no verifier configured.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"charter/internal/infra"
)

// Auth verifies the Authorization bearer token and stores the caller uid in
// the context. A nil verifier disables auth for local development.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == "" || raw == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("uid", token.UID)
		c.Next()
	}
}
