package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health check at the root, outside the API prefix, so load
	// balancers and probes don't need to know the API version.
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleUpsertUser)
			r.Get("/paginated", s.handleListUsersPaginated)

			// chi requires one param name per segment position, so this
			// subtree serves both /users/{id} (record by ID) and
			// /users/{page}/{size} (path-form pagination): the first
			// numeric segment is an ID when it stands alone and a page
			// number when followed by a size segment.
			r.Route("/{id:[0-9]+}", func(r chi.Router) {
				r.Get("/", s.handleGetUser)
				r.Put("/", s.handleUpdateUser)
				r.Delete("/", s.handleDeleteUser)

				r.Get("/{size:[0-9]+}", s.handleListUsersPagePath)
				r.Get("/{size:[0-9]+}/search/{query}", s.handleSearchUsers)
			})
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the service health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "UP",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "userdir",
		"version":   s.version,
	})
}
