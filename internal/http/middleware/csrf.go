package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rochafa10/DeedFlow-sub010/internal/config"
	"github.com/rochafa10/DeedFlow-sub010/internal/service"
)

// CSRF rejects cross-site state-changing requests. Same-site evidence from
// Origin/Referer is accepted first; otherwise a single-use token from the
// configured header must validate.
type CSRF struct {
	Service *service.CSRFService
	Header  string
}

// NewCSRF builds the guard middleware around the service.
func NewCSRF(svc *service.CSRFService, cfg config.Config) *CSRF {
	header := cfg.TokenHeader
	if header == "" {
		header = "X-CSRF-Token"
	}
	return &CSRF{Service: svc, Header: header}
}

// Guard is the gin handler enforcing the anti-forgery decision.
func (m *CSRF) Guard(c *gin.Context) {
	decision := m.Service.Authorize(c.Request.Context(), service.GuardRequest{
		Method:  c.Request.Method,
		Origin:  c.GetHeader("Origin"),
		Referer: c.GetHeader("Referer"),
		Token:   c.GetHeader(m.Header),
	})
	if !decision.Allowed {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "Forbidden",
			"message": decision.Message,
			"status":  http.StatusForbidden,
		})
		return
	}
	c.Next()
}
