package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/securelab/backend/internal/metrics"
)

// CustomLoggerMiddleware prints one [API] line per request and counts it by route.
func CustomLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()

		admin := c.GetString(ContextAdminID)
		if admin == "" {
			admin = "-"
		}

		fmt.Printf("[API] %s | %s | %d | %s | %s | Admin: %s\n",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			latency.String(),
			c.ClientIP(),
			admin,
		)
	}
}
