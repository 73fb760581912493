// Package memory provides the domain model for agent-scoped long-term
// memory. Memories are append-only; retrieval is by vector similarity.
package memory

import "time"

// Kind categorizes a memory entry.
type Kind string

const (
	KindPosition     Kind = "position"
	KindPromise      Kind = "promise"
	KindOpenQuestion Kind = "open_question"
	KindInsight      Kind = "insight"
)

// ValidKind reports whether k is a known memory kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindPosition, KindPromise, KindOpenQuestion, KindInsight:
		return true
	}
	return false
}

// Memory is a single agent-scoped long-term fact.
type Memory struct {
	ID        string            `json:"id"`
	AgentID   string            `json:"agent_id"`
	Kind      Kind              `json:"kind"`
	Content   string            `json:"content"`
	Embedding []float32         `json:"-"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Scored wraps a Memory with its similarity score against a query vector.
type Scored struct {
	Memory
	Score float64 `json:"score"`
}
