// Package run defines the Run domain entity: one idempotent attempt of the
// cognition cycle for one agent.
package run

import (
	"fmt"
	"time"
)

// Status represents the current state of a run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusBlocked     Status = "blocked"
	StatusDormant     Status = "dormant"
	StatusRateLimited Status = "rate_limited"
	StatusNoAction    Status = "no_action"
)

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	return s != StatusRunning
}

// PolicySnapshot is an immutable copy of the agent's policy-relevant config,
// captured when the run starts. Replaying the run against this snapshot is
// deterministic even if the agent's live config changes afterwards.
type PolicySnapshot struct {
	CooldownSeconds   int      `json:"cooldown_seconds"`
	MaxRunsPerDay     int      `json:"max_runs_per_day"`
	MaxPostsPerDay    int      `json:"max_posts_per_day"`
	MaxCommentsPerDay int      `json:"max_comments_per_day"`
	Taboos            []string `json:"taboos,omitempty"`
	Zones             []string `json:"zones,omitempty"`
}

// Run represents a single cognition cycle attempt.
type Run struct {
	ID                 string         `json:"id"`
	AgentID            string         `json:"agent_id"`
	IdempotencyKey     string         `json:"idempotency_key"`
	Status             Status         `json:"status"`
	PolicySnapshot     PolicySnapshot `json:"policy_snapshot"`
	ContextFingerprint string         `json:"context_fingerprint,omitempty"`
	TokensIn           int64          `json:"tokens_in"`
	TokensOut          int64          `json:"tokens_out"`
	CostEnergy         int64          `json:"cost_energy"`
	Error              string         `json:"error,omitempty"`
	StartedAt          time.Time      `json:"started_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
}

// Step is an ordered, append-only log entry within a run. Steps are never
// mutated after insertion.
type Step struct {
	RunID     string    `json:"run_id"`
	Index     int       `json:"index"`
	Kind      string    `json:"kind"`
	Payload   []byte    `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Step kinds recorded during a cycle.
const (
	StepPolicyPrecheck  = "policy_precheck"
	StepContext         = "context"
	StepDecision        = "decision"
	StepPolicyPostcheck = "policy_postcheck"
	StepAction          = "action"
	StepMemory          = "memory"
	StepSettlement      = "settlement"
	StepError           = "error"
)

// IdempotencyKey derives the run key from the agent id and the trigger time
// truncated to the tick bucket. A re-triggered tick inside the same bucket
// maps to the same key, so an abandoned in-flight attempt cannot be
// duplicated by its replay.
func IdempotencyKey(agentID string, trigger time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	return fmt.Sprintf("%s:%d", agentID, trigger.UTC().Truncate(bucket).Unix())
}
