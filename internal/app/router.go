package app

import (
	apphttp "github.com/yungbote/vibecode-backend/internal/http"
	"github.com/yungbote/vibecode-backend/internal/observability"
	"github.com/yungbote/vibecode-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *apphttp.Server {
	rc := apphttp.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		CORSOrigins:      cfg.CORSOrigins,
		RequestDeadline:  cfg.RequestDeadline,
		ChatHandler:      handlers.Chat,
		ProjectHandler:   handlers.Project,
		PreviewHandler:   handlers.Preview,
		RealtimeHandler:  handlers.Realtime,
		AnalyticsHandler: handlers.Analytics,
		AIHandler:        handlers.AI,
		HealthHandler:    handlers.Health,
	}
	if cfg.Otel.Enabled {
		rc.ServiceName = cfg.Otel.ServiceName
	}
	return apphttp.NewServer(":"+cfg.Port, rc)
}
