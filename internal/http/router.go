package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/vibecode-backend/internal/http/handlers"
	httpMW "github.com/yungbote/vibecode-backend/internal/http/middleware"
	"github.com/yungbote/vibecode-backend/internal/observability"
	"github.com/yungbote/vibecode-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics
	// ServiceName names the otelgin server spans; empty disables tracing middleware.
	ServiceName string
	CORSOrigins []string
	// RequestDeadline bounds chat and project requests. SSE streams are exempt.
	RequestDeadline time.Duration

	ChatHandler      *httpH.ChatHandler
	ProjectHandler   *httpH.ProjectHandler
	PreviewHandler   *httpH.PreviewHandler
	RealtimeHandler  *httpH.RealtimeHandler
	AnalyticsHandler *httpH.AnalyticsHandler
	AIHandler        *httpH.AIHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/metrics", cfg.HealthHandler.Metrics)
	}

	bounded := r.Group("/")
	bounded.Use(httpMW.RequestDeadline(cfg.RequestDeadline))

	// Chat
	if cfg.ChatHandler != nil {
		bounded.POST("/chat/session", cfg.ChatHandler.OpenSession)
		bounded.POST("/chat/session/:id/send", cfg.ChatHandler.Send)
		bounded.GET("/chat/session/:id/history", cfg.ChatHandler.History)
		bounded.POST("/chat/session/:id/context", cfg.ChatHandler.UpdateContext)
	}

	// Projects
	if cfg.ProjectHandler != nil {
		bounded.POST("/project/generate", cfg.ProjectHandler.Generate)
		bounded.GET("/project/:id/revisions", cfg.ProjectHandler.Revisions)
		bounded.POST("/project/:id/rollback", cfg.ProjectHandler.Rollback)
		bounded.GET("/project/:id/diff", cfg.ProjectHandler.Diff)
		bounded.GET("/project/:id/files", cfg.ProjectHandler.Files)
		bounded.GET("/project/:id/download", cfg.ProjectHandler.Download)
		bounded.GET("/projects", cfg.ProjectHandler.List)
	}

	// Preview
	if cfg.PreviewHandler != nil {
		bounded.GET("/preview/:project_id", cfg.PreviewHandler.Page)
		bounded.GET("/preview-assets/:project_id/*path", cfg.PreviewHandler.Asset)
	}

	if cfg.AnalyticsHandler != nil {
		bounded.GET("/analytics", cfg.AnalyticsHandler.Summary)
		bounded.GET("/analytics/day/:date", cfg.AnalyticsHandler.Day)
	}

	if cfg.AIHandler != nil {
		bounded.GET("/ai/status", cfg.AIHandler.Status)
	}

	// Realtime (SSE)
	if cfg.RealtimeHandler != nil {
		r.GET("/realtime/stream", cfg.RealtimeHandler.Stream)
	}

	return r
}
