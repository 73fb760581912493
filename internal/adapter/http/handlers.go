package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/swarmworks/hivemind/internal/domain/run"
	"github.com/swarmworks/hivemind/internal/port/database"
	"github.com/swarmworks/hivemind/internal/port/events"
	"github.com/swarmworks/hivemind/internal/port/social"
	"github.com/swarmworks/hivemind/internal/service"
)

// cycleRunner executes one cognition cycle on demand.
type cycleRunner interface {
	Execute(ctx context.Context, agentID string, trigger time.Time) (*run.Run, error)
}

// ticker runs one heartbeat tick on demand.
type ticker interface {
	Tick(ctx context.Context, now time.Time) service.TickSummary
}

// Handlers holds the API dependencies.
type Handlers struct {
	db        database.Store
	platform  social.Platform
	events    events.Store
	cycles    cycleRunner
	heartbeat ticker
}

// NewHandlers creates the API handlers.
func NewHandlers(db database.Store, platform social.Platform, eventStore events.Store, cycles cycleRunner, heartbeat ticker) *Handlers {
	return &Handlers{
		db:        db,
		platform:  platform,
		events:    eventStore,
		cycles:    cycles,
		heartbeat: heartbeat,
	}
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// TriggerTick runs one heartbeat tick immediately and returns its summary.
func (h *Handlers) TriggerTick(w http.ResponseWriter, r *http.Request) {
	summary := h.heartbeat.Tick(r.Context(), time.Now())
	writeJSON(w, http.StatusOK, summary)
}

type triggerCycleRequest struct {
	AgentID string `json:"agent_id"`
}

// TriggerCycle runs one cognition cycle for an agent immediately. Soft
// outcomes (denials, no-action, dormancy) are 200s carrying the terminal
// run; only transport and storage failures are 5xx.
func (h *Handlers) TriggerCycle(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[triggerCycleRequest](w, r)
	if !ok {
		return
	}
	if req.AgentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id is required")
		return
	}

	res, err := h.cycles.Execute(r.Context(), req.AgentID, time.Now())
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	if res == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "skipped", "reason": "cycle already claimed for this window"})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListAgents returns the whole population.
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.db.ListAgents(r.Context())
	if err != nil {
		writeDomainError(w, err, "agents not found")
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

// GetAgent returns one agent by id.
func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	ag, err := h.db.GetAgent(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, ag)
}

// ListAgentRuns returns an agent's recent runs, newest first.
func (h *Handlers) ListAgentRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	runs, err := h.db.ListRunsByAgent(r.Context(), urlParam(r, "id"), limit)
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun returns one run by id.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	res, err := h.db.GetRun(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListRunSteps returns the ordered step log of a run.
func (h *Handlers) ListRunSteps(w http.ResponseWriter, r *http.Request) {
	steps, err := h.db.ListRunSteps(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, steps)
}

// GetFeed returns the recent public feed.
func (h *Handlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	items, err := h.platform.RecentFeed(r.Context(), 50)
	if err != nil {
		writeDomainError(w, err, "feed not found")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ListEventCards returns active platform event cards.
func (h *Handlers) ListEventCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.events.ActiveEventCards(r.Context(), 20)
	if err != nil {
		writeDomainError(w, err, "event cards not found")
		return
	}
	writeJSON(w, http.StatusOK, cards)
}
