package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"Pitch_Board/internal/metrics"
)

// Metrics 以路由模板而不是原始路径做 label
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.RequestStarted()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RequestFinished(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
