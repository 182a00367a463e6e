package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"igunfollow/pkg/logger"
)

// corsMiddleware lets the companion web page call the server from any origin
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// loggerMiddleware logs every request at a level chosen by its status
func loggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": time.Since(start),
			"ip":      c.ClientIP(),
		}

		switch {
		case status >= 500:
			log.ErrorWithFields("HTTP request", fields)
		case status >= 400:
			log.WarnWithFields("HTTP request", fields)
		default:
			log.DebugWithFields("HTTP request", fields)
		}
	}
}
