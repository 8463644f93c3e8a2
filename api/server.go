/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the office UI

ROUTE GROUPS:
  /api/clients/*        Clients, billing events, letters
  /api/reports/*        Dashboard summary
  /api/follow-ups/*     Follow-up list and digest
  /api/promises         Promise lookup
  /api/scenarios/*      Demo scenarios
  /healthz              Liveness

SECURITY NOTE:
  No authentication middleware. Deploy behind the office SSO proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultCORSOrigins are the local UI dev servers.
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured. An empty
// origins list allows DefaultCORSOrigins.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = DefaultCORSOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/meta", h.GetMeta)

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetClient)
				r.Put("/", h.UpdateClient)
				r.Delete("/", h.DeleteClient)
				r.Get("/billing", h.GetBilling)

				// Billing events
				r.Post("/invoice", h.SetupInvoice)
				r.Post("/payments", h.RecordPayment)
				r.Post("/arrangement", h.SetArrangement)
				r.Delete("/arrangement", h.DeleteArrangement)
				r.Post("/promise", h.SetPromise)
				r.Delete("/promise", h.DeletePromise)
				r.Post("/logs", h.AppendLog)
				r.Post("/follow-up", h.ScheduleFollowUp)

				// Letters
				r.Get("/letters/past-due", h.GetPastDue)
				r.Post("/letters/warning", h.WarningLetter)
				r.Post("/letters/termination", h.TerminationLetter)
			})
		})

		r.Get("/reports/summary", h.GetSummary)

		r.Route("/follow-ups", func(r chi.Router) {
			r.Get("/", h.ListFollowUps)
			r.Post("/digest", h.SendDigest)
			r.Get("/digest/runs", h.ListDigestRuns)
		})

		r.Get("/promises", h.ListPromises)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
