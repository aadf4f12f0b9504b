package handlers

import (
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vibecode-backend/internal/clients/llm"
	"github.com/yungbote/vibecode-backend/internal/http/response"
)

// ProviderLister is the part of the LLM client the status endpoint reads.
type ProviderLister interface {
	Providers() []string
}

type AIHandler struct {
	llm     ProviderLister
	skipped map[string]string
}

// NewAIHandler takes the configured client and the providers that were
// dropped at startup, keyed by name with the reason.
func NewAIHandler(client ProviderLister, skipped map[string]string) *AIHandler {
	return &AIHandler{llm: client, skipped: skipped}
}

type skippedProvider struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

// GET /ai/status
func (h *AIHandler) Status(c *gin.Context) {
	providers := h.llm.Providers()
	skipped := make([]skippedProvider, 0, len(h.skipped))
	for name, reason := range h.skipped {
		skipped = append(skipped, skippedProvider{Provider: name, Reason: reason})
	}
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Provider < skipped[j].Provider })
	response.RespondOK(c, gin.H{
		"providers": providers,
		"available": len(providers) > 0,
		"skipped":   skipped,
		"fallback":  llm.FallbackProvider,
	})
}
