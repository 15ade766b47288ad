package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/tracing"
)

// TracingMiddleware opens one span per API request. The stream id path param
// is recorded when present so traces can be filtered per stream.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.TraceHTTPRequest(c.Request.Context(), c.Request.Method, c.FullPath())
		defer span.End()

		if streamID := c.Param("stream_id"); streamID != "" {
			span.SetAttributes(tracing.StreamIDKey.String(streamID))
		}
		if requestID := c.GetString(requestIDKey); requestID != "" {
			span.SetAttributes(attribute.String("request.id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		tracing.AddSpanAttributes(ctx,
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.String("http.remote_addr", c.ClientIP()),
		)
		if c.Writer.Status() >= 400 {
			span.SetStatus(codes.Error, c.Errors.String())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}
