package app

import (
	"fmt"

	"github.com/yungbote/vibecode-backend/internal/modules/chat"
	"github.com/yungbote/vibecode-backend/internal/modules/synth"
	"github.com/yungbote/vibecode-backend/internal/modules/templates"
	"github.com/yungbote/vibecode-backend/internal/modules/versions"
	"github.com/yungbote/vibecode-backend/internal/observability"
	"github.com/yungbote/vibecode-backend/internal/platform/interactionlog"
	"github.com/yungbote/vibecode-backend/internal/platform/logger"
	"github.com/yungbote/vibecode-backend/internal/realtime"
	"github.com/yungbote/vibecode-backend/internal/services"
)

type Services struct {
	Templates *templates.Library
	Store     *versions.Store
	Synth     *synth.Synthesizer
	// Journal is nil when the interaction log directory is unusable.
	Journal  *interactionlog.Writer
	Emitter  services.SSEEmitter
	Projects services.ProjectService
	Chat     *chat.Manager
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, repos Repos, metrics *observability.Metrics, hub *realtime.SSEHub) (Services, error) {
	log.Info("Wiring services...")

	lib, err := templates.New()
	if err != nil {
		return Services{}, fmt.Errorf("load templates: %w", err)
	}

	var storeOpts []versions.Option
	if repos.Revisions != nil {
		storeOpts = append(storeOpts, versions.WithIndexer(repos.Revisions))
	}
	store, err := versions.New(cfg.VersionStoreRoot, log, storeOpts...)
	if err != nil {
		return Services{}, fmt.Errorf("init version store: %w", err)
	}

	var recorder interactionlog.Recorder = interactionlog.Nop()
	journal, err := interactionlog.NewWriter(cfg.InteractionLogDir)
	if err != nil {
		log.Warn("interaction log disabled", "dir", cfg.InteractionLogDir, "error", err)
	} else {
		recorder = journal
	}

	// With a bus every instance's hub is fed by the forwarder, this one included.
	var emitter services.SSEEmitter = &services.HubEmitter{Hub: hub}
	if clients.SSEBus != nil {
		emitter = &services.BusEmitter{Bus: clients.SSEBus, Log: log}
	}

	synthesizer := synth.New(lib, clients.LLM, log)
	var index services.ProjectIndex
	if repos.Revisions != nil {
		index = repos.Revisions
	}
	projects := services.NewProjectService(log, synthesizer, store, index, emitter, metrics, recorder)

	manager := chat.NewManager(chat.Deps{
		Log:          log,
		Projects:     projects,
		LLM:          clients.LLM,
		Recorder:     recorder,
		Metrics:      metrics,
		Catalog:      chat.CatalogFor(cfg.ChatLocale),
		TTL:          cfg.SessionTTL,
		TurnDeadline: cfg.RequestDeadline,
	})

	return Services{
		Templates: lib,
		Store:     store,
		Synth:     synthesizer,
		Journal:   journal,
		Emitter:   emitter,
		Projects:  projects,
		Chat:      manager,
	}, nil
}
