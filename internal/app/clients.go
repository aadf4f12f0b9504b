package app

import (
	"fmt"

	"github.com/yungbote/vibecode-backend/internal/clients/llm"
	"github.com/yungbote/vibecode-backend/internal/observability"
	"github.com/yungbote/vibecode-backend/internal/platform/logger"
	"github.com/yungbote/vibecode-backend/internal/realtime/bus"
)

type Clients struct {
	LLM *llm.Client
	// LLMSkipped maps providers dropped at startup to the reason.
	LLMSkipped map[string]string
	// SSEBus is nil when REDIS_ADDR is unset; progress then stays in-process.
	SSEBus bus.Bus
}

func wireClients(log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	cfgs, skipped := llm.ConfigsFromEnv(cfg.LLMProviders, cfg.LLMTimeout)
	for name, reason := range skipped {
		log.Warn("LLM provider skipped", "provider", name, "reason", reason)
	}
	providers, err := llm.NewProviders(cfgs)
	if err != nil {
		return Clients{}, fmt.Errorf("init llm providers: %w", err)
	}
	if len(providers) == 0 {
		log.Warn("no usable LLM provider; replies will use the fallback text")
	}
	client := llm.New(log, providers, llm.WithTimeout(cfg.LLMTimeout), llm.WithObserver(metrics))
	log.Info("LLM client ready", "providers", client.Providers())

	// Redis
	var b bus.Bus
	if cfg.RedisAddr != "" {
		b, err = bus.NewRedisBus(log, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
	}
	return Clients{LLM: client, LLMSkipped: skipped, SSEBus: b}, nil
}
