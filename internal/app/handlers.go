package app

import (
	httpH "github.com/yungbote/vibecode-backend/internal/http/handlers"
	"github.com/yungbote/vibecode-backend/internal/observability"
	"github.com/yungbote/vibecode-backend/internal/platform/logger"
	"github.com/yungbote/vibecode-backend/internal/realtime"
)

type Handlers struct {
	Health    *httpH.HealthHandler
	Chat      *httpH.ChatHandler
	Project   *httpH.ProjectHandler
	Preview   *httpH.PreviewHandler
	Realtime  *httpH.RealtimeHandler
	Analytics *httpH.AnalyticsHandler
	AI        *httpH.AIHandler
}

func wireHandlers(log *logger.Logger, clients Clients, services Services, metrics *observability.Metrics, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	h := Handlers{
		Health:   httpH.NewHealthHandler(metrics),
		Chat:     httpH.NewChatHandler(services.Chat),
		Project:  httpH.NewProjectHandler(services.Projects),
		Preview:  httpH.NewPreviewHandler(services.Projects),
		Realtime: httpH.NewRealtimeHandler(log, hub),
		AI:       httpH.NewAIHandler(clients.LLM, clients.LLMSkipped),
	}
	if services.Journal != nil {
		h.Analytics = httpH.NewAnalyticsHandler(services.Journal)
	}
	return h
}
