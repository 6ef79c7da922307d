package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hms-report-api/internal/service"
)

// Metrics returns middleware that captures request metrics using the provided recorder.
func Metrics(metrics *service.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metrics.ObserveHTTP(c.Request.Method, path, status, duration)
	}
}
