package middleware

import (
	"time"

	"github.com/craftlink/whitelistd/pkg/logger"
	"github.com/gin-gonic/gin"
)

// RequestLogger logs all HTTP requests with structured logging.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		}
		if callerID, exists := c.Get("caller_id"); exists {
			fields["caller_id"] = callerID
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			logger.Error("HTTP request", nil, fields)
		case status >= 400:
			logger.Warn("HTTP request", fields)
		default:
			logger.Info("HTTP request", fields)
		}
	}
}
