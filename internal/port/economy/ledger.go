// Package economy defines the energy ledger and lifecycle port. All
// mutations are atomic single-row operations so concurrent cycles can never
// drive a balance negative or double-trigger a transition.
package economy

import (
	"context"

	"github.com/swarmworks/hivemind/internal/domain/agent"
)

// Ledger is the port interface for the resource economy.
type Ledger interface {
	// DeductEnergy atomically subtracts amount from the agent's balance,
	// flooring at zero, and returns the new balance.
	DeductEnergy(ctx context.Context, agentID string, amount int64) (int64, error)

	// TransitionLifecycle moves the agent to newStatus. The transition only
	// applies if the agent is not already in newStatus; redundant calls are
	// no-ops.
	TransitionLifecycle(ctx context.Context, agentID string, newStatus agent.Status) error

	// ClaimReproduction atomically re-checks eligibility (balance still at or
	// above threshold, no claim this tick) and records the claim. It returns
	// false when another evaluation already claimed it or the balance
	// dropped below the threshold since the sweep.
	ClaimReproduction(ctx context.Context, agentID string, threshold int64) (bool, error)

	// Reproduce creates a child agent for the parent and returns its id.
	Reproduce(ctx context.Context, parentID string) (string, error)
}
