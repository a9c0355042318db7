package api

import (
	"errors"
	"net/http"

	"github.com/craftlink/whitelistd/internal/models"
	"github.com/craftlink/whitelistd/internal/rcon"
	"github.com/craftlink/whitelistd/internal/service"
	"github.com/gin-gonic/gin"
)

// WhitelistHandler exposes allow-list mutations to the chat layer.
type WhitelistHandler struct {
	whitelist *service.WhitelistService
	fleet     *service.FleetService
}

// NewWhitelistHandler creates a new whitelist handler.
func NewWhitelistHandler(whitelist *service.WhitelistService, fleet *service.FleetService) *WhitelistHandler {
	return &WhitelistHandler{whitelist: whitelist, fleet: fleet}
}

// ListServers handles GET /api/servers
func (h *WhitelistHandler) ListServers(c *gin.Context) {
	servers := h.fleet.List()
	out := make([]models.ServerConfig, 0, len(servers))
	for _, s := range servers {
		out = append(out, s.Redacted())
	}
	c.JSON(http.StatusOK, out)
}

type whitelistRequest struct {
	ExternalID string `json:"external_id" binding:"required"`
}

// Add handles POST /api/servers/:server/whitelist
func (h *WhitelistHandler) Add(c *gin.Context) {
	server := h.fleet.Get(c.Param("server"))
	if server == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown server"})
		return
	}

	var req whitelistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "external_id is required"})
		return
	}

	ok, err := h.whitelist.Add(req.ExternalID, server)
	h.respond(c, server.ID, ok, err)
}

// Remove handles DELETE /api/servers/:server/whitelist/:id
func (h *WhitelistHandler) Remove(c *gin.Context) {
	server := h.fleet.Get(c.Param("server"))
	if server == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown server"})
		return
	}

	ok, err := h.whitelist.Remove(c.Param("id"), server)
	h.respond(c, server.ID, ok, err)
}

// Sync handles POST /api/servers/:server/whitelist/sync
func (h *WhitelistHandler) Sync(c *gin.Context) {
	server := h.fleet.Get(c.Param("server"))
	if server == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown server"})
		return
	}

	report, err := h.whitelist.SyncAll(server)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *WhitelistHandler) respond(c *gin.Context, serverID string, ok bool, err error) {
	switch {
	case err != nil && errors.Is(err, rcon.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": "Server is receiving too many whitelist commands, retry later",
			"code":  "RATE_LIMITED",
		})
	case err != nil && errors.Is(err, service.ErrPlayerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Player not found", "server_id": serverID})
	case err != nil && errors.Is(err, service.ErrServerDisabled):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Server is disabled", "server_id": serverID})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "server_id": serverID})
	case !ok:
		c.JSON(http.StatusConflict, gin.H{
			"error":     "Server did not confirm the mutation",
			"server_id": serverID,
		})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok", "server_id": serverID})
	}
}
