package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vibecode-backend/internal/observability"
)

// streamingRoutes hold their connection open; counting them as in flight
// would pin the gauge for the life of every SSE client.
var streamingRoutes = map[string]bool{
	"/realtime/stream": true,
}

// Metrics counts requests per matched route and observes latency for the
// request/response routes. Unmatched paths share the "unmatched" series.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		streaming := streamingRoutes[route]
		if !streaming {
			m.ApiInflightInc()
			defer m.ApiInflightDec()
		}

		start := time.Now()
		c.Next()

		dur := time.Since(start)
		if streaming {
			dur = 0
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), dur)
	}
}
