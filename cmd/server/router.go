package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/aiorch/internal/api"
	apiMiddleware "github.com/phrazzld/aiorch/internal/api/middleware"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	taskHandler := api.NewTaskHandler(app.orchestrator)
	statusHandler := api.NewStatusHandler(app.orchestrator)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/tasks", taskHandler.SubmitTask)

			r.Get("/models", statusHandler.ListModels)
			r.Get("/models/health", statusHandler.ModelHealth)
			r.Get("/metrics/report", statusHandler.MetricsReport)
			r.Get("/queue/stats", statusHandler.QueueStats)
		})
	})

	r.Get("/health", statusHandler.Health)

	return r
}
