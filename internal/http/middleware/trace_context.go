package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/vibecode-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext gives every request a request id and a trace id. Caller
// headers win, then the otelgin span, then a fresh UUID. Both ids are echoed
// back and land on the request span next to the route's :id.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)

		td := &ctxutil.TraceData{
			RequestID: headerOr(c, headerRequestID, uuid.NewString),
			TraceID: headerOr(c, headerTraceID, func() string {
				if sc := span.SpanContext(); sc.HasTraceID() {
					return sc.TraceID().String()
				}
				return uuid.NewString()
			}),
		}
		if span.IsRecording() {
			span.SetAttributes(attribute.String("http.request_id", td.RequestID))
			if id := c.Param("id"); id != "" {
				span.SetAttributes(attribute.String(resourceKey(c), id))
			}
		}

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(ctx, td))
		h := c.Writer.Header()
		h.Set(headerTraceID, td.TraceID)
		h.Set(headerRequestID, td.RequestID)
		c.Next()
	}
}

func headerOr(c *gin.Context, name string, fallback func() string) string {
	if v := strings.TrimSpace(c.GetHeader(name)); v != "" {
		return v
	}
	return fallback()
}

// resourceKey names the route's :id by what it identifies.
func resourceKey(c *gin.Context) string {
	if strings.HasPrefix(c.FullPath(), "/chat/") {
		return "session_id"
	}
	return "project_id"
}
