package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rochafa10/DeedFlow-sub010/internal/adapter/identity"
	"github.com/rochafa10/DeedFlow-sub010/internal/domain"
)

const identityKey = "identity"

// Auth validates the Authorization header against the identity service and
// attaches the resolved identity. It is an independent gate from the
// anti-forgery guard; protected routes run both.
type Auth struct {
	Verifier identity.Verifier
}

// Authenticate ensures the request has a valid bearer credential.
func (m *Auth) Authenticate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Authorization header required."})
		return
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Bearer token required."})
		return
	}
	who, err := m.Verifier.Verify(c.Request.Context(), parts[1])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Invalid credential."})
		return
	}
	c.Set(identityKey, who)
	c.Next()
}

// GetIdentity exposes the authenticated identity to handlers.
func GetIdentity(c *gin.Context) (domain.Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	who, ok := value.(domain.Identity)
	return who, ok
}
