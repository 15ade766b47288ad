package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/utils"
)

const RequestIDHeader = "X-Request-ID"

// requestIDKey is the gin context key the error handler reads for log
// correlation.
const requestIDKey = "request_id"

// RequestIDMiddleware assigns every request an id, honoring one supplied by
// the caller so ids stay stable across proxies.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = utils.GenerateRequestID()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}
