package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/door-sentry/internal/web/handlers"
)

// requestTimeout bounds every non-streaming request.
const requestTimeout = 15 * time.Second

func (s *Server) setupRoutes() {
	accessHandler := handlers.NewAccessHandler(s.deps.Controller)
	eventsHandler := handlers.NewEventsHandler(s.deps.Notices, s.deps.Controller)
	auditHandler := handlers.NewAuditHandler(s.deps.Audit)
	configHandler := handlers.NewConfigHandler(s.config, s.deps.Gallery)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Server-sent events stay open until the client leaves.
		r.Get("/events", eventsHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(requestTimeout))

			r.Get("/status", accessHandler.Status)
			r.Get("/config", configHandler.Get)
			r.Get("/audit", auditHandler.List)

			// Vision pipeline input
			r.Post("/frames", accessHandler.SubmitFrame)
			r.Post("/faces/resolve", accessHandler.ResolveFaces)

			// Operator triggers
			r.Post("/confirm", accessHandler.Confirm)
			r.Post("/deny", accessHandler.Deny)
			r.Post("/lock", accessHandler.BeginLock)
		})
	})
}
