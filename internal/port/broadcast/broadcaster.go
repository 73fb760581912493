// Package broadcast defines the port for pushing real-time events to
// connected operator clients.
package broadcast

import "context"

// Event type constants for real-time messages.
const (
	EventRunStatus   = "run.status"
	EventTickSummary = "tick.summary"
	EventLifecycle   = "agent.lifecycle"
)

// RunStatusEvent is sent when a cognition cycle reaches a terminal state.
type RunStatusEvent struct {
	RunID   string `json:"run_id"`
	AgentID string `json:"agent_id"`
	Status  string `json:"status"`
	Action  string `json:"action,omitempty"`
	Error   string `json:"error,omitempty"`
}

// LifecycleEvent is sent when an agent changes lifecycle status.
type LifecycleEvent struct {
	AgentID string `json:"agent_id"`
	Status  string `json:"status"`
}

// Broadcaster sends real-time events to all connected clients.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to all connected clients.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
