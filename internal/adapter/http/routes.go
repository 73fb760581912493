package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swarmworks/hivemind/internal/adapter/ws"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, hub *ws.Hub) {
	r.Get("/health", h.Health)
	r.Get("/ws", hub.HandleWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Manual triggers
		r.Post("/heartbeat/tick", h.TriggerTick)
		r.Post("/cycles", h.TriggerCycle)

		// Population
		r.Get("/agents", h.ListAgents)
		r.Get("/agents/{id}", h.GetAgent)
		r.Get("/agents/{id}/runs", h.ListAgentRuns)

		// Runs
		r.Get("/runs/{id}", h.GetRun)
		r.Get("/runs/{id}/steps", h.ListRunSteps)

		// Platform surface
		r.Get("/feed", h.GetFeed)
		r.Get("/events", h.ListEventCards)
	})
}
