package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-expensefund/internal/app/observability/metrics"
)

// RequestMetricsMiddleware records request count and duration against the
// app instruments. Runs after the handler chain so the status code is final.
// The route template keeps the path attribute low-cardinality; unmatched
// requests fall back to the raw path.
func RequestMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		statusCode := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		m := metrics.Get()
		m.HTTPRequestsTotal.Add(c.Request.Context(), 1,
			metric.WithAttributes(
				attribute.String("method", c.Request.Method),
				attribute.String("path", path),
				attribute.String("status", strconv.Itoa(statusCode)),
			))

		m.HTTPRequestDuration.Record(c.Request.Context(), duration,
			metric.WithAttributes(
				attribute.String("method", c.Request.Method),
				attribute.String("path", path),
			))
	}
}
