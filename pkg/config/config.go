package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything whitelistd reads from the environment.
type Config struct {
	// Application
	AppName string
	Debug   bool
	Port    string

	// Logging
	LogLevel string
	LogJSON  bool

	// Database
	DatabaseURL string

	// Authentication for the HTTP API
	JWTSecret string

	// Fleet definition (JSON file of ServerConfig entries)
	ServersFile string

	// RCON connection pool
	PoolMaxSize           int
	PoolConnectTimeout    time.Duration
	PoolHeartbeatInterval time.Duration
	PoolMaxIdle           time.Duration
	PoolSweepInterval     time.Duration

	// RCON command execution
	ExecuteTimeout time.Duration
	LockAttempts   int
	LockRetryDelay time.Duration
	RateLimit      int
	RateWindow     time.Duration

	// Batch whitelist sync
	BatchDelay time.Duration
}

// Load reads configuration from the environment, with a .env file if
// one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppName:     getEnv("APP_NAME", "whitelistd"),
		Debug:       getEnvBool("DEBUG", false),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "INFO"),
		LogJSON:     getEnvBool("LOG_JSON", false),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		ServersFile: getEnv("SERVERS_FILE", "./servers.json"),

		PoolMaxSize:           getEnvInt("POOL_MAX_SIZE", 8),
		PoolConnectTimeout:    getEnvDuration("POOL_CONNECT_TIMEOUT", 5*time.Second),
		PoolHeartbeatInterval: getEnvDuration("POOL_HEARTBEAT_INTERVAL", 60*time.Second),
		PoolMaxIdle:           getEnvDuration("POOL_MAX_IDLE", 10*time.Minute),
		PoolSweepInterval:     getEnvDuration("POOL_SWEEP_INTERVAL", 5*time.Minute),

		ExecuteTimeout: getEnvDuration("EXECUTE_TIMEOUT", 10*time.Second),
		LockAttempts:   getEnvInt("LOCK_ATTEMPTS", 10),
		LockRetryDelay: getEnvDuration("LOCK_RETRY_DELAY", 100*time.Millisecond),
		RateLimit:      getEnvInt("RATE_LIMIT", 10),
		RateWindow:     getEnvDuration("RATE_WINDOW", 3*time.Second),

		BatchDelay: getEnvDuration("BATCH_DELAY", 500*time.Millisecond),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("Invalid boolean for %s, using default: %v", key, defaultValue)
			return defaultValue
		}
		return boolVal
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("Invalid integer for %s, using default: %d", key, defaultValue)
			return defaultValue
		}
		return intVal
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			log.Printf("Invalid duration for %s, using default: %s", key, defaultValue)
			return defaultValue
		}
		return d
	}
	return defaultValue
}
