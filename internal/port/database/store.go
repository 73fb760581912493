// Package database defines the relational store port.
package database

import (
	"context"
	"time"

	"github.com/swarmworks/hivemind/internal/domain/agent"
	"github.com/swarmworks/hivemind/internal/domain/policy"
	"github.com/swarmworks/hivemind/internal/domain/run"
)

// Store is the port interface for relational state.
type Store interface {
	// Agents
	GetAgent(ctx context.Context, id string) (*agent.Agent, error)
	ListAgents(ctx context.Context) ([]agent.Agent, error)
	// ListEligibleAgents returns ACTIVE agents with positive energy whose
	// schedule permits a run at now.
	ListEligibleAgents(ctx context.Context, now time.Time) ([]agent.Agent, error)
	// ListZeroBalanceAgents returns ACTIVE agents whose energy is <= 0.
	ListZeroBalanceAgents(ctx context.Context) ([]agent.Agent, error)
	// ListReproductionCandidates returns platform-owned ACTIVE agents whose
	// energy is at or above the threshold.
	ListReproductionCandidates(ctx context.Context, threshold int64) ([]agent.Agent, error)
	// RecordAction increments the per-day counter for kind and stamps the
	// last-action timestamps.
	RecordAction(ctx context.Context, agentID string, kind policy.Action, at time.Time) error
	// ScheduleNextRun persists the agent's next scheduled run time.
	ScheduleNextRun(ctx context.Context, agentID string, at time.Time) error

	// Runs. CreateRun returns domain.ErrDuplicateRun when the idempotency
	// key is already taken; the existing run is never overwritten.
	CreateRun(ctx context.Context, r *run.Run) error
	GetRun(ctx context.Context, id string) (*run.Run, error)
	ListRunsByAgent(ctx context.Context, agentID string, limit int) ([]run.Run, error)
	SetRunContext(ctx context.Context, runID, fingerprint string) error
	CompleteRun(ctx context.Context, runID string, status run.Status, errMsg string, tokensIn, tokensOut, cost int64) error

	// Run steps are append-only; the store assigns the next index.
	AppendRunStep(ctx context.Context, runID, kind string, payload []byte) error
	ListRunSteps(ctx context.Context, runID string) ([]run.Step, error)
}
