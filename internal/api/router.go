package api

import (
	"time"

	"github.com/craftlink/whitelistd/internal/middleware"
	"github.com/craftlink/whitelistd/internal/service"
	"github.com/craftlink/whitelistd/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter wires the HTTP surface consumed by the chat-command
// layer.
func SetupRouter(
	healthHandler *HealthHandler,
	playerHandler *PlayerHandler,
	whitelistHandler *WhitelistHandler,
	authService *service.AuthService,
	cfg *config.Config,
) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RateLimit(middleware.NewRateLimiter(time.Second, 60)))

	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := router.Group("/api")
	authed.Use(middleware.Auth(authService))
	{
		authed.GET("/players/:id", playerHandler.GetPlayer)
		authed.POST("/players/:id/bind", playerHandler.Bind)
		authed.DELETE("/players/:id/bind", playerHandler.Unbind)

		authed.GET("/servers", whitelistHandler.ListServers)
		authed.POST("/servers/:server/whitelist", whitelistHandler.Add)
		authed.DELETE("/servers/:server/whitelist/:id", whitelistHandler.Remove)
		authed.POST("/servers/:server/whitelist/sync", whitelistHandler.Sync)
	}

	return router
}
