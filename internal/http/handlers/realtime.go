package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/vibecode-backend/internal/http/response"
	"github.com/yungbote/vibecode-backend/internal/platform/apierr"
	"github.com/yungbote/vibecode-backend/internal/platform/logger"
	"github.com/yungbote/vibecode-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /realtime/stream?channel=project:<id>
// The channel query may repeat to follow several projects on one stream.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	channels := c.QueryArray("channel")
	if len(channels) == 0 {
		response.RespondError(c, apierr.Newf(apierr.KindValidation, "channel is required"))
		return
	}
	for _, ch := range channels {
		if !realtime.IsProjectChannel(ch) {
			response.RespondError(c, apierr.Newf(apierr.KindValidation, "unsupported channel %q", ch))
			return
		}
	}

	client := h.hub.NewSSEClient()
	for _, ch := range channels {
		h.hub.AddChannel(client, ch)
	}
	h.log.Info("SSE stream open", "client_id", client.ID.String(), "project_ids", client.ProjectIDs())
	defer h.hub.CloseClient(client)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
	h.log.Debug("SSE stream closed", "client_id", client.ID.String())
}
