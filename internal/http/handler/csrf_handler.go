package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rochafa10/DeedFlow-sub010/internal/config"
	"github.com/rochafa10/DeedFlow-sub010/internal/http/middleware"
	"github.com/rochafa10/DeedFlow-sub010/internal/service"
)

// CSRFHandler exposes token issuance.
type CSRFHandler struct {
	service *service.CSRFService
	cfg     config.Config
	logger  *zap.Logger
}

// NewCSRFHandler wires the handler.
func NewCSRFHandler(svc *service.CSRFService, cfg config.Config, logger *zap.Logger) *CSRFHandler {
	return &CSRFHandler{service: svc, cfg: cfg, logger: logger}
}

// IssueToken hands the authenticated caller a fresh single-use token. The
// plaintext appears only in this response; the store keeps its digest.
func (h *CSRFHandler) IssueToken(c *gin.Context) {
	sessionRef := c.GetString("request_id")
	if who, ok := middleware.GetIdentity(c); ok {
		sessionRef = who.UserID
	}

	plaintext, err := h.service.Issue(c.Request.Context(), sessionRef)
	if err != nil {
		if errors.Is(err, service.ErrStorageUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "ServiceUnavailable",
				"message": "Token storage is unavailable. Try again shortly.",
				"status":  http.StatusServiceUnavailable,
			})
			return
		}
		h.logger.Error("token issuance failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "InternalServerError",
			"message": "Could not issue a token.",
			"status":  http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      plaintext,
		"header":     h.cfg.TokenHeader,
		"expires_in": int(h.cfg.TokenTTL.Seconds()),
	})
}
