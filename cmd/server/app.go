package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/aiorch/internal/cache"
	"github.com/phrazzld/aiorch/internal/catalog"
	"github.com/phrazzld/aiorch/internal/config"
	"github.com/phrazzld/aiorch/internal/enrich"
	"github.com/phrazzld/aiorch/internal/monitor"
	"github.com/phrazzld/aiorch/internal/orchestrator"
	"github.com/phrazzld/aiorch/internal/platform/gemini"
	"github.com/phrazzld/aiorch/internal/platform/telemetry"
	"github.com/phrazzld/aiorch/internal/registry"
	"github.com/phrazzld/aiorch/internal/service/auth"
	"github.com/phrazzld/aiorch/internal/task"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// application holds the shared dependencies of the server and releases them on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	meterProvider *sdkmetric.MeterProvider
	orchestrator  *orchestrator.Orchestrator
	jwtService    auth.JWTService
}

// newApplication wires the orchestrator and its collaborators from cfg.
// Background work (queue dispatch, metric sweeps) is started here.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.meterProvider = telemetry.NewMeterProvider(logger, cfg.Monitor.ExportInterval)
	otel.SetMeterProvider(app.meterProvider)

	builders, err := providerBuilders(ctx, cfg.LLM, logger)
	if err != nil {
		app.cleanup()
		return nil, err
	}

	reg := registry.New(logger)
	store := enrich.NewMapStore()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to load model catalog: %w", err)
	}
	if _, err := cat.Apply(ctx, reg, builders, store, logger); err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to apply model catalog: %w", err)
	}

	enricher, err := enrich.New(cfg.Enrich, store, store, enrich.NewHistory(cfg.Enrich.HistorySize), logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create context enricher: %w", err)
	}

	mon := monitor.New(cfg.Monitor, logger, monitor.WithMeterProvider(app.meterProvider))
	queue := task.NewQueue(cfg.Queue, logger)

	app.orchestrator, err = orchestrator.New(orchestrator.Components{
		Registry: reg,
		Cache:    cache.New(cfg.Cache, logger),
		Queue:    queue,
		Monitor:  mon,
		Enricher: enricher,
	}, orchestrator.ConfigFrom(cfg), logger)
	if err != nil {
		enricher.Close()
		app.cleanup()
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	if err := queue.Start(); err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to start task queue: %w", err)
	}
	mon.Start(ctx)

	logger.Info("Application initialized successfully",
		"models", len(reg.All()),
		"max_concurrent", cfg.Queue.MaxConcurrent)
	return app, nil
}

// providerBuilders returns the catalog builders for every provider that can be
// constructed. Gemini is only offered when an API key is configured.
func providerBuilders(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (map[string]catalog.Builder, error) {
	builders := map[string]catalog.Builder{
		catalog.ProviderEcho: catalog.EchoBuilder,
	}
	if cfg.GeminiAPIKey == "" {
		logger.Info("Gemini API key not set, gemini catalog models will be skipped")
		return builders, nil
	}

	models, err := gemini.NewModels(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to set up Gemini provider: %w", err)
	}
	builders[catalog.ProviderGemini] = catalog.GeminiBuilder(logger, models, cfg.ModelName)
	logger.Info("Gemini provider enabled", "default_model", cfg.ModelName)
	return builders, nil
}

// Run serves HTTP until ctx ends, then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.orchestrator != nil {
		app.orchestrator.Close()
	}

	if app.meterProvider != nil {
		// Shutdown flushes a final export.
		if err := app.meterProvider.Shutdown(context.Background()); err != nil {
			app.logger.Error("Error shutting down meter provider", "error", err)
		}
	}

	app.logger.Info("Application resources cleaned up")
}
