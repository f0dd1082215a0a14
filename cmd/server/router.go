package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/namegen-api/internal/api"
	apiMiddleware "github.com/phrazzld/namegen-api/internal/api/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(apiMiddleware.MustNewHTTPMetrics(app.registry).Handler)

	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	generateHandler := api.NewGenerateHandler(app.generator, app.config.Dispatch.EngineTimeout(), app.logger)
	statusHandler := api.NewStatusHandler(app.taskStore, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/tasks", taskHandler.ListTasks)
		r.Post("/tasks", taskHandler.CreateTask)
		r.Get("/tasks/{slug}", taskHandler.GetTask)
		r.Delete("/tasks/{slug}", taskHandler.DeleteTask)

		r.Post("/generate", generateHandler.Generate)
		r.Post("/zhipu/generate", generateHandler.Generate)
		r.Get("/debug/status", statusHandler.DebugStatus)
	})

	r.Get("/health", statusHandler.Health)
	r.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

	return r
}
