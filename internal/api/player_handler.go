package api

import (
	"errors"
	"net/http"

	"github.com/craftlink/whitelistd/internal/external"
	"github.com/craftlink/whitelistd/internal/service"
	"github.com/gin-gonic/gin"
)

// PlayerHandler serves player records and account binding.
type PlayerHandler struct {
	players service.PlayerStore
	binds   *service.BindService
}

// NewPlayerHandler creates a new player handler.
func NewPlayerHandler(players service.PlayerStore, binds *service.BindService) *PlayerHandler {
	return &PlayerHandler{players: players, binds: binds}
}

// GetPlayer handles GET /api/players/:id
func (h *PlayerHandler) GetPlayer(c *gin.Context) {
	player, err := h.players.FindByExternalID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load player"})
		return
	}
	if player == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Player not found"})
		return
	}
	c.JSON(http.StatusOK, player)
}

type bindRequest struct {
	Username string `json:"username" binding:"required"`
}

// Bind handles POST /api/players/:id/bind
func (h *PlayerHandler) Bind(c *gin.Context) {
	var req bindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	player, err := h.binds.Bind(c.Param("id"), req.Username)
	if err != nil {
		if errors.Is(err, external.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No Minecraft account with that username"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, player)
}

// Unbind handles DELETE /api/players/:id/bind
func (h *PlayerHandler) Unbind(c *gin.Context) {
	if err := h.binds.Unbind(c.Param("id")); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unbound"})
}
