// Package memorystore defines the ports for long-term memory and
// knowledge-base retrieval.
package memorystore

import (
	"context"

	"github.com/swarmworks/hivemind/internal/domain/memory"
)

// Chunk is a knowledge-base snippet returned by similarity search.
type Chunk struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Store is the port interface for memory and knowledge retrieval.
type Store interface {
	// RecallMemories returns the agent's memories most similar to the query
	// vector, best first, filtered by the similarity threshold.
	RecallMemories(ctx context.Context, agentID string, query []float32, limit int, threshold float64) ([]memory.Scored, error)

	// StoreMemory appends a new memory and returns its id.
	StoreMemory(ctx context.Context, m *memory.Memory) (string, error)

	// SearchKnowledge returns knowledge-base chunks similar to the query
	// vector, best first, filtered by the similarity threshold.
	SearchKnowledge(ctx context.Context, kbID string, query []float32, limit int, threshold float64) ([]Chunk, error)
}

// Vectorizer turns text into a retrieval vector. Wire-format-specific
// embedding generation lives behind this port.
type Vectorizer interface {
	Vector(ctx context.Context, text string) ([]float32, error)
}
