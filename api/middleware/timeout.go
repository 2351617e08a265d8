package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// TimeoutHeader lets callers bound a single request's processing time
// in seconds.
const TimeoutHeader = "bichon-timeout"

const maxRequestTimeout = 5 * time.Minute

// RequestTimeout honors the per-request timeout header by deriving a
// deadline-bound context. Absent or invalid values leave the request
// untouched.
func RequestTimeout() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(TimeoutHeader)
		if header == "" {
			c.Next()
			return
		}
		seconds, err := time.ParseDuration(header + "s")
		if err != nil || seconds <= 0 || seconds > maxRequestTimeout {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), seconds)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
