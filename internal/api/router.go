package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/vault"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, publishes change events and serves GET /events.
func NewRouter(svc *vault.Service, authEnabled bool, token string, broker *sse.Broker) chi.Router {
	h := NewHandler(svc, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Records.
	r.Post("/records", h.WriteRecord)
	r.Get("/records", h.ListRecords)
	r.Get("/records/*", h.GetRecord)

	// Search.
	r.Get("/search", h.Search)

	// Graph.
	r.Get("/graph", h.Graph)
	r.Get("/graph/traverse", h.Traverse)

	// Maintenance.
	r.Get("/stats", h.Stats)
	r.Post("/dedup", h.Dedup)

	// SSE endpoint (protected by the same auth middleware).
	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	return r
}
