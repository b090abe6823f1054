package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskpulse/backend/internal/authz"
	"github.com/huangang/taskpulse/backend/internal/models"
	"github.com/huangang/taskpulse/backend/internal/utils"
)

const (
	ContextIdentity    = "identity"
	ContextCallerEmail = "caller_email"
)

// AuthRequired verifies the bearer token and stores the caller identity in the context.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims, err := utils.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		identity := authz.Identity{
			Email: models.NormalizeEmail(claims.Email),
			Name:  claims.Name,
			Role:  models.Role(claims.Role),
		}
		c.Set(ContextIdentity, identity)
		c.Set(ContextCallerEmail, identity.Email)

		c.Next()
	}
}

// GetIdentity returns the verified caller. ok is false outside AuthRequired.
func GetIdentity(c *gin.Context) (authz.Identity, bool) {
	v, exists := c.Get(ContextIdentity)
	if !exists {
		return authz.Identity{}, false
	}
	identity, ok := v.(authz.Identity)
	return identity, ok
}

// GetCallerEmail returns the normalized caller email, or "".
func GetCallerEmail(c *gin.Context) string {
	return c.GetString(ContextCallerEmail)
}
