package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"dc-purchase-api/internal/logger"
)

func RequestLogger() gin.HandlerFunc {
	httpLog := logger.NewLogger("http")

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		entry := map[string]interface{}{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"ip":         c.ClientIP(),
			"latency":    latency.String(),
			"trace_id":   c.GetString("trace_id"),
			"user-agent": c.Request.UserAgent(),
		}

		switch {
		case len(c.Errors) > 0:
			httpLog.WithFields(entry).Error(c.Errors.String())
		case c.Writer.Status() >= 500:
			httpLog.WithFields(entry).Warn("request failed")
		default:
			httpLog.WithFields(entry).Info("request completed")
		}
	}
}

// CORS 公开接口，任意来源
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
