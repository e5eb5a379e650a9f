package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"geocover/internal/metrics"
)

// Metrics records the count and latency of every request, labelled by the
// matched route pattern rather than the raw path so job IDs do not explode
// the label space.
func Metrics(m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// MaxBody caps request bodies at n bytes. Reading past the cap fails with
// *http.MaxBytesError.
func MaxBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
