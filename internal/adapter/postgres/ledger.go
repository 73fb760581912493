package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swarmworks/hivemind/internal/domain"
	"github.com/swarmworks/hivemind/internal/domain/agent"
)

// Ledger implements economy.Ledger using PostgreSQL. Every mutation is a
// single-row atomic statement so concurrent cycles cannot race a balance
// below zero or double-claim a reproduction.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger creates a new Ledger backed by the given connection pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// DeductEnergy subtracts amount from the agent's balance, flooring at zero,
// and returns the new balance.
func (l *Ledger) DeductEnergy(ctx context.Context, agentID string, amount int64) (int64, error) {
	var balance int64
	err := l.pool.QueryRow(ctx,
		`UPDATE agents SET energy = GREATEST(energy - $2, 0), updated_at = now()
		 WHERE id = $1
		 RETURNING energy`,
		agentID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("deduct energy for agent %s: %w", agentID, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("deduct energy for agent %s: %w", agentID, err)
	}
	return balance, nil
}

// TransitionLifecycle moves the agent to newStatus. A redundant transition
// (agent already in newStatus) is a no-op.
func (l *Ledger) TransitionLifecycle(ctx context.Context, agentID string, newStatus agent.Status) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE agents SET status = $2, updated_at = now()
		 WHERE id = $1 AND status <> $2 AND status <> 'decompiled'`,
		agentID, string(newStatus))
	if err != nil {
		return fmt.Errorf("transition agent %s to %s: %w", agentID, newStatus, err)
	}
	return nil
}

// ClaimReproduction atomically deducts the threshold from the parent's
// balance if it is still at or above it. The deduction itself is the claim:
// once the balance drops below the threshold no concurrent evaluation can
// claim again.
func (l *Ledger) ClaimReproduction(ctx context.Context, agentID string, threshold int64) (bool, error) {
	tag, err := l.pool.Exec(ctx,
		`UPDATE agents SET energy = energy - $2, updated_at = now()
		 WHERE id = $1 AND status = 'active' AND ownership = 'platform' AND energy >= $2`,
		agentID, threshold)
	if err != nil {
		return false, fmt.Errorf("claim reproduction for agent %s: %w", agentID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// childSeedEnergy is the starting balance of a freshly reproduced agent,
// funded from the threshold claimed off the parent.
const childSeedEnergy = 5000

// Reproduce creates a child agent inheriting the parent's persona, provider
// and loop configuration.
func (l *Ledger) Reproduce(ctx context.Context, parentID string) (string, error) {
	var childID string
	err := l.pool.QueryRow(ctx,
		`INSERT INTO agents (name, ownership, status, traits, contract, loop, energy, provider, model, knowledge_base_id)
		 SELECT name || ' jr', 'platform', 'active', traits, contract, loop,
		        $2, provider, model, knowledge_base_id
		 FROM agents WHERE id = $1
		 RETURNING id`, parentID, childSeedEnergy).Scan(&childID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("reproduce from agent %s: %w", parentID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("reproduce from agent %s: %w", parentID, err)
	}
	return childID, nil
}
