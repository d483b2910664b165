package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rochafa10/DeedFlow-sub010/internal/domain"
	"github.com/rochafa10/DeedFlow-sub010/internal/http/middleware"
	"github.com/rochafa10/DeedFlow-sub010/internal/repository"
)

// WatchlistHandler exposes the parcels a user tracks. These are the thin
// state-changing routes the anti-forgery guard protects.
type WatchlistHandler struct {
	repo      repository.WatchlistRepository
	snowflake *snowflake.Node
	logger    *zap.Logger
}

// NewWatchlistHandler wires the handler.
func NewWatchlistHandler(repo repository.WatchlistRepository, node *snowflake.Node, logger *zap.Logger) *WatchlistHandler {
	return &WatchlistHandler{repo: repo, snowflake: node, logger: logger}
}

type watchlistRequest struct {
	ParcelID string `json:"parcel_id" binding:"required"`
	County   string `json:"county" binding:"required"`
	Notes    string `json:"notes"`
}

type watchlistResponse struct {
	ID        string    `json:"id"`
	ParcelID  string    `json:"parcel_id"`
	County    string    `json:"county"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Add records a parcel on the caller's watchlist.
func (h *WatchlistHandler) Add(c *gin.Context) {
	who, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Identity missing."})
		return
	}

	var req watchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "parcel_id and county are required."})
		return
	}

	entry := domain.WatchlistEntry{
		ID:        h.snowflake.Generate().Int64(),
		UserID:    who.UserID,
		ParcelID:  strings.TrimSpace(req.ParcelID),
		County:    strings.TrimSpace(req.County),
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: time.Now(),
	}

	created, err := h.repo.Add(c.Request.Context(), entry)
	if err != nil {
		h.logger.Error("watchlist add failed", zap.Error(err), zap.String("user_id", who.UserID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "InternalServerError", "message": "Could not save the entry.", "status": http.StatusInternalServerError})
		return
	}

	c.JSON(http.StatusCreated, toWatchlistResponse(created))
}

// List returns the caller's watchlist.
func (h *WatchlistHandler) List(c *gin.Context) {
	who, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Identity missing."})
		return
	}

	entries, err := h.repo.ListByUser(c.Request.Context(), who.UserID)
	if err != nil {
		h.logger.Error("watchlist list failed", zap.Error(err), zap.String("user_id", who.UserID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "InternalServerError", "message": "Could not load the watchlist.", "status": http.StatusInternalServerError})
		return
	}

	out := make([]watchlistResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toWatchlistResponse(e))
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}

// Remove deletes one entry from the caller's watchlist.
func (h *WatchlistHandler) Remove(c *gin.Context) {
	who, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Identity missing."})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Entry id must be numeric."})
		return
	}

	if err := h.repo.Remove(c.Request.Context(), who.UserID, id); err != nil {
		h.logger.Error("watchlist remove failed", zap.Error(err), zap.String("user_id", who.UserID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "InternalServerError", "message": "Could not remove the entry.", "status": http.StatusInternalServerError})
		return
	}

	c.Status(http.StatusNoContent)
}

func toWatchlistResponse(e domain.WatchlistEntry) watchlistResponse {
	return watchlistResponse{
		ID:        strconv.FormatInt(e.ID, 10),
		ParcelID:  e.ParcelID,
		County:    e.County,
		Notes:     e.Notes,
		CreatedAt: e.CreatedAt,
	}
}
