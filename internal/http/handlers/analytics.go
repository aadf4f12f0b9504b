package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vibecode-backend/internal/http/response"
	"github.com/yungbote/vibecode-backend/internal/platform/apierr"
	"github.com/yungbote/vibecode-backend/internal/platform/interactionlog"
)

// InteractionLog is the read side of the interaction journal.
type InteractionLog interface {
	Summarize(days int) (interactionlog.Stats, error)
	ReadDay(day time.Time) ([]interactionlog.Entry, error)
}

type AnalyticsHandler struct {
	journal InteractionLog
}

func NewAnalyticsHandler(journal InteractionLog) *AnalyticsHandler {
	return &AnalyticsHandler{journal: journal}
}

// GET /analytics?days=7
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	days := 7
	if v := strings.TrimSpace(c.Query("days")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 90 {
			response.RespondError(c, apierr.Newf(apierr.KindValidation, "days must be between 1 and 90"))
			return
		}
		days = n
	}
	st, err := h.journal.Summarize(days)
	if err != nil {
		response.RespondError(c, apierr.New(apierr.KindStorage, err))
		return
	}
	response.RespondOK(c, st)
}

// GET /analytics/day/:date (YYYY-MM-DD)
func (h *AnalyticsHandler) Day(c *gin.Context) {
	day, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		response.RespondInvalid(c, err)
		return
	}
	entries, err := h.journal.ReadDay(day)
	if err != nil {
		response.RespondError(c, apierr.New(apierr.KindStorage, err))
		return
	}
	if entries == nil {
		entries = []interactionlog.Entry{}
	}
	response.RespondOK(c, gin.H{"date": c.Param("date"), "entries": entries})
}
