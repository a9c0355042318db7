package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/craftlink/whitelistd/internal/api"
	"github.com/craftlink/whitelistd/internal/external"
	"github.com/craftlink/whitelistd/internal/rcon"
	"github.com/craftlink/whitelistd/internal/repository"
	"github.com/craftlink/whitelistd/internal/service"
	"github.com/craftlink/whitelistd/pkg/config"
	"github.com/craftlink/whitelistd/pkg/logger"
)

func main() {
	cfg := config.Load()

	appLogger := logger.New(logger.ParseLevel(cfg.LogLevel), os.Stdout, cfg.LogJSON)
	logger.SetDefault(appLogger)

	logger.Info("Starting application", map[string]interface{}{
		"app":   cfg.AppName,
		"debug": cfg.Debug,
		"port":  cfg.Port,
	})

	if err := repository.InitDB(cfg); err != nil {
		logger.Fatal("Failed to initialize database", err, nil)
	}
	logger.Info("Database initialized", nil)

	fleet, err := service.NewFleetService(cfg.ServersFile)
	if err != nil {
		logger.Fatal("Failed to load server fleet", err, nil)
	}
	logger.Info("Server fleet loaded", map[string]interface{}{
		"servers": len(fleet.List()),
		"enabled": len(fleet.Enabled()),
	})

	pool := rcon.NewPool(rcon.DialRCON, rcon.PoolOptions{
		MaxSize:           cfg.PoolMaxSize,
		ConnectTimeout:    cfg.PoolConnectTimeout,
		HeartbeatInterval: cfg.PoolHeartbeatInterval,
		MaxIdle:           cfg.PoolMaxIdle,
		SweepInterval:     cfg.PoolSweepInterval,
	})
	defer pool.Close()

	executor := rcon.NewExecutor(pool, rcon.ExecutorOptions{
		ExecuteTimeout: cfg.ExecuteTimeout,
		LockAttempts:   cfg.LockAttempts,
		LockRetryDelay: cfg.LockRetryDelay,
		RateLimit:      cfg.RateLimit,
		RateWindow:     cfg.RateWindow,
	})

	playerRepo := repository.NewPlayerRepository(repository.GetDB())
	whitelistService := service.NewWhitelistService(playerRepo, executor, cfg.BatchDelay)
	bindService := service.NewBindService(playerRepo, external.NewMojangClient(), whitelistService, fleet)

	authService, err := service.NewAuthService(cfg.JWTSecret)
	if err != nil {
		logger.Fatal("Failed to initialize auth service", err, nil)
	}

	healthHandler := api.NewHealthHandler()
	playerHandler := api.NewPlayerHandler(playerRepo, bindService)
	whitelistHandler := api.NewWhitelistHandler(whitelistService, fleet)

	router := api.SetupRouter(healthHandler, playerHandler, whitelistHandler, authService, cfg)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down gracefully...", nil)
		pool.Close()
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("Server starting", map[string]interface{}{"address": addr})
	if err := router.Run(addr); err != nil {
		logger.Fatal("Failed to start server", err, nil)
	}
}
