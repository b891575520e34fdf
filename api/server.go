/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the HR frontend

SECURITY NOTE:
  No authentication middleware currently. The engine is deployed behind
  the HR suite's gateway, which authenticates and forwards actor ids.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Incapacity lifecycle
		r.Route("/incapacities", func(r chi.Router) {
			r.Get("/", h.ListIncapacities)
			r.Post("/", h.CreateIncapacity)
			r.Get("/{id}", h.GetIncapacity)
			r.Get("/{id}/history", h.GetHistory)
			r.Post("/{id}/prorroga", h.CreateProrroga)
			r.Post("/{id}/transcription", h.RegisterTranscription)
			r.Post("/{id}/collection", h.RegisterCollection)
			r.Post("/{id}/finalize", h.Finalize)
			r.Post("/{id}/cancel", h.Cancel)
			r.Post("/{id}/observations", h.AddObservation)
			r.Post("/{id}/documents", h.AttachDocument)
			r.Post("/{id}/archive", h.Archive)
		})

		// Permit conversion
		r.Route("/absence-requests", func(r chi.Router) {
			r.Post("/{id}/convert", h.ConvertAbsenceRequest)
		})

		// Reports
		r.Route("/reports", func(r chi.Router) {
			r.Get("/statistics", h.GetStatistics)
			r.Get("/collection", h.GetCollectionReport)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	return r
}
