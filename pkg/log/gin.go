package log

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const headerCorrelationID = "X-Correlation-ID"

// GinMiddleware returns a Gin middleware that:
//  1. Generates or reads a correlation ID from the X-Correlation-ID header.
//  2. Creates a child logger with request metadata and injects it into context.
//  3. Sets the X-Correlation-ID response header.
//  4. Logs the completed request with status and latency.
func GinMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		corrID := c.GetHeader(headerCorrelationID)
		if corrID == "" {
			corrID = uuid.New().String()
		}

		child := logger.With().
			Str(FieldCorrelationID, corrID).
			Str(FieldMethod, c.Request.Method).
			Str(FieldPath, c.Request.URL.Path).
			Str(FieldClientIP, c.ClientIP()).
			Logger()

		c.Header(headerCorrelationID, corrID)
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), child))

		c.Next()

		child.Info().
			Int(FieldStatus, c.Writer.Status()).
			Float64(FieldLatency, float64(time.Since(start).Milliseconds())).
			Msg("request completed")
	}
}
