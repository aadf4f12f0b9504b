package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	apphttp "github.com/yungbote/vibecode-backend/internal/http"
	"github.com/yungbote/vibecode-backend/internal/observability"
	"github.com/yungbote/vibecode-backend/internal/platform/envutil"
	"github.com/yungbote/vibecode-backend/internal/platform/logger"
	"github.com/yungbote/vibecode-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    Repos
	Services Services
	SSEHub   *realtime.SSEHub
	Server   *apphttp.Server

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.New()
	ssehub := realtime.NewSSEHub(log)

	clientset, err := wireClients(log, cfg, metrics)
	if err != nil {
		log.Sync()
		return nil, err
	}
	reposet := wireRepos(log, cfg)

	serviceset, err := wireServices(log, cfg, clientset, reposet, metrics, ssehub)
	if err != nil {
		_ = reposet.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, clientset, serviceset, metrics, ssehub)
	server := wireServer(log, cfg, handlerset, metrics)
	server.OnShutdown(ssehub.CloseAll)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Metrics:      metrics,
		Clients:      clientset,
		Repos:        reposet,
		Services:     serviceset,
		SSEHub:       ssehub,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP, evicts idle chat sessions and relays bus events into the
// local hub until ctx ends or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	if a.Clients.SSEBus != nil {
		if err := a.Clients.SSEBus.StartForwarder(gctx, a.SSEHub.Broadcast); err != nil {
			return fmt.Errorf("start SSE forwarder: %w", err)
		}
	}
	g.Go(func() error { return a.Services.Chat.RunJanitor(gctx) })
	g.Go(func() error {
		a.Log.Info("Server listening", "addr", a.Server.Addr())
		return a.Server.Run(gctx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Clients.SSEBus != nil {
		if err := a.Clients.SSEBus.Close(); err != nil {
			a.Log.Warn("close SSE bus", "error", err)
		}
	}
	if a.Services.Journal != nil {
		if err := a.Services.Journal.Close(); err != nil {
			a.Log.Warn("close interaction log", "error", err)
		}
	}
	if err := a.Repos.Close(); err != nil {
		a.Log.Warn("close database", "error", err)
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}
	a.Log.Sync()
}
