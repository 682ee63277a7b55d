package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yama-lei/plantodo/internal"
)

// requestIDKey is the gin context key the error and success helpers read
// the correlation ID from.
const requestIDKey = "request_id"

// RequestIDMiddleware attaches a correlation ID to every request,
// honoring a caller-supplied X-Request-ID and minting one otherwise.
func RequestIDMiddleware(logger internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
			logger.Debugf("assigned request id %s to %s %s", reqID, c.Request.Method, c.Request.URL.Path)
		}
		c.Set(requestIDKey, reqID)
		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Next()
	}
}
