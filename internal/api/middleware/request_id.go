package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-Id"

// RequestID stamps every inbound request with a request id (reusing an
// inbound X-Request-Id if the caller already set one), so actor/storage
// errors logged deeper in the stack can be correlated back to the HTTP
// request that triggered them.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID retrieves the request id stamped by RequestID.
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get(RequestIDHeader); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
