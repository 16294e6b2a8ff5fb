/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions for the stage-runner surface. The batch pipeline stays a
  batch pipeline; this API only lets an operator trigger stages and
  inspect their checkpoints remotely instead of over SSH.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the operations dashboard

ROUTES:
  GET  /api/stages              Stage list with checkpoint presence
  POST /api/stages/{stage}/run  Run one stage against current checkpoints
  POST /api/run                 Run the whole pipeline in order
  GET  /api/status              Statuses of this process's past runs
  GET  /api/healthz             Liveness probe

SECURITY NOTE:
  No authentication middleware. The runner binds to localhost by
  default; front it with the ops proxy before exposing it wider.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/vrcalc/main.go: Server startup (-serve)
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", h.Health)
		r.Get("/status", h.ListStatuses)
		r.Post("/run", h.RunAll)

		r.Route("/stages", func(r chi.Router) {
			r.Get("/", h.ListStages)
			r.Post("/{stage}/run", h.RunStage)
		})
	})

	return r
}
