package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/swarmworks/hivemind/internal/domain/memory"
	"github.com/swarmworks/hivemind/internal/port/memorystore"
)

// MemoryStore implements memorystore.Store using pgvector cosine similarity.
type MemoryStore struct {
	pool *pgxpool.Pool
}

// NewMemoryStore creates a new MemoryStore backed by the given connection pool.
func NewMemoryStore(pool *pgxpool.Pool) *MemoryStore {
	return &MemoryStore{pool: pool}
}

// RecallMemories returns the agent's memories most similar to the query
// vector, best first. Rows below the similarity threshold are filtered out.
func (m *MemoryStore) RecallMemories(ctx context.Context, agentID string, query []float32, limit int, threshold float64) ([]memory.Scored, error) {
	vec := pgvector.NewVector(query)
	rows, err := m.pool.Query(ctx,
		`SELECT id, agent_id, kind, content, metadata, created_at, 1 - (embedding <=> $2) AS score
		 FROM agent_memories
		 WHERE agent_id = $1 AND embedding IS NOT NULL AND 1 - (embedding <=> $2) >= $3
		 ORDER BY embedding <=> $2
		 LIMIT $4`,
		agentID, vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("recall memories for agent %s: %w", agentID, err)
	}
	defer rows.Close()

	var out []memory.Scored
	for rows.Next() {
		var sc memory.Scored
		var metadataJSON []byte
		if err := rows.Scan(&sc.ID, &sc.AgentID, &sc.Kind, &sc.Content, &metadataJSON, &sc.CreatedAt, &sc.Score); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &sc.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal memory metadata: %w", err)
			}
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// StoreMemory appends a new memory row and returns its id.
func (m *MemoryStore) StoreMemory(ctx context.Context, mem *memory.Memory) (string, error) {
	metadataJSON, err := json.Marshal(mem.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal memory metadata: %w", err)
	}

	var embedding any
	if len(mem.Embedding) > 0 {
		embedding = pgvector.NewVector(mem.Embedding)
	}

	var id string
	err = m.pool.QueryRow(ctx,
		`INSERT INTO agent_memories (agent_id, kind, content, embedding, metadata)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		mem.AgentID, string(mem.Kind), mem.Content, embedding, metadataJSON).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("store memory for agent %s: %w", mem.AgentID, err)
	}
	mem.ID = id
	return id, nil
}

// SearchKnowledge returns knowledge-base chunks similar to the query vector,
// best first, filtered by the similarity threshold.
func (m *MemoryStore) SearchKnowledge(ctx context.Context, kbID string, query []float32, limit int, threshold float64) ([]memorystore.Chunk, error) {
	vec := pgvector.NewVector(query)
	rows, err := m.pool.Query(ctx,
		`SELECT id, content, 1 - (embedding <=> $2) AS score
		 FROM knowledge_chunks
		 WHERE knowledge_base_id = $1 AND embedding IS NOT NULL AND 1 - (embedding <=> $2) >= $3
		 ORDER BY embedding <=> $2
		 LIMIT $4`,
		kbID, vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search knowledge base %s: %w", kbID, err)
	}
	defer rows.Close()

	var chunks []memorystore.Chunk
	for rows.Next() {
		var c memorystore.Chunk
		if err := rows.Scan(&c.ID, &c.Content, &c.Score); err != nil {
			return nil, fmt.Errorf("scan knowledge chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
