package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/volunteer-api/internal/metrics"
)

// Metrics reports every request by its route template
func Metrics(rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
