package app

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appconfig "carboncheck/backend/services/carbon-service/internal/config"
	httpserver "carboncheck/backend/services/carbon-service/internal/http"
	"carboncheck/backend/services/carbon-service/internal/http/handlers"
	"carboncheck/backend/services/carbon-service/internal/http/middleware"
	"carboncheck/backend/services/carbon-service/internal/intensity"
	"carboncheck/backend/services/carbon-service/internal/scheduler"
	"carboncheck/backend/services/carbon-service/internal/service"
)

// App wires dependencies for the carbon service.
type App struct {
	server    *httpserver.Server
	scheduler *scheduler.Scheduler
	closeDB   func() error
	logger    *zap.Logger
}

// New builds application graph.
func New(ctx context.Context, cfg *appconfig.Config, logger *zap.Logger) (*App, error) {
	store, closeDB, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	source := intensity.NewClient(cfg.Intensity.URL, logger.Named("intensity"), intensity.WithTimeout(cfg.IntensityTimeout()))
	params := cfg.CheckParams()
	ingestSvc := service.NewIngestionService(source, store, params, logger.Named("ingestion"))
	historySvc := service.NewHistoryService(store, params)

	var sched *scheduler.Scheduler
	if cfg.Schedule.Enabled {
		sched, err = scheduler.New(cfg.Schedule.Cron, ingestSvc, logger.Named("scheduler"))
		if err != nil {
			closeDB()
			return nil, err
		}
	}

	historyHandlers := handlers.NewHistoryHandlers(historySvc, cfg.Environment, logger)
	routes := httpserver.Routes{
		Check:    handlers.NewCheckHandler(ingestSvc, logger),
		Graph:    historyHandlers.Graph,
		Chart:    historyHandlers.Chart,
		Readings: historyHandlers.Readings,
		Health:   handlers.NewHealthHandler(),
	}
	if cfg.Metrics.Enabled {
		routes.Metrics = promhttp.Handler()
	}

	router := httpserver.NewRouter(routes, middleware.AuthMiddleware(cfg.Auth.JWTSecret, cfg.Auth.AccessKeyHash))
	server := httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)

	if cfg.Auth.JWTSecret == "" && cfg.Auth.AccessKeyHash == "" {
		logger.Warn("no jwt secret or access key configured, http triggers are open")
	}

	return &App{
		server:    server,
		scheduler: sched,
		closeDB:   closeDB,
		logger:    logger,
	}, nil
}

// Handler exposes the HTTP handler chain.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Run serves HTTP traffic and fires the timer trigger until context cancellation.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Run(ctx)
	})
	if a.scheduler != nil {
		g.Go(func() error {
			return a.scheduler.Run(ctx)
		})
	}
	return g.Wait()
}

// Close releases acquired resources.
func (a *App) Close() {
	if a.closeDB != nil {
		if err := a.closeDB(); err != nil {
			a.logger.Warn("failed to close reading store", zap.Error(err))
		}
	}
}
