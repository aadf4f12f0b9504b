package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestDeadline bounds the request context. Zero leaves it unbounded.
func RequestDeadline(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
