// Package policy defines the pure policy gate applied before and after every
// model decision. Evaluation is side-effect-free; callers act only on an
// allowed result.
package policy

import "time"

// Code enumerates machine-readable denial reasons.
type Code string

const (
	CodeGlobalCooldown Code = "GLOBAL_COOLDOWN"
	CodeDailyCap       Code = "DAILY_CAP"
	CodeTabooViolation Code = "TABOO_VIOLATION"
	CodeOutOfScope     Code = "OUT_OF_SCOPE"
)

// Action identifies what the agent proposes to do.
type Action string

const (
	// ActionSystemCheck is the pre-flight pseudo-action evaluated with empty
	// arguments before any model call is made.
	ActionSystemCheck   Action = "system_check"
	ActionCreatePost    Action = "create_post"
	ActionCreateComment Action = "create_comment"
)

// Arguments carries the proposed action arguments relevant to evaluation.
type Arguments struct {
	Zone     string `json:"zone,omitempty"`
	Title    string `json:"title,omitempty"`
	Content  string `json:"content,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
}

// Snapshot is the policy-relevant agent configuration at evaluation time.
type Snapshot struct {
	CooldownSeconds   int
	MaxRunsPerDay     int
	MaxPostsPerDay    int
	MaxCommentsPerDay int
	Taboos            []string
	Zones             []string
}

// State is the mutable agent state the rules are checked against.
type State struct {
	Now           time.Time
	LastActionAt  *time.Time
	RunsToday     int
	PostsToday    int
	CommentsToday int
}

// Result is the outcome of a policy evaluation. Denials are first-class
// values, never errors.
type Result struct {
	Allowed    bool          `json:"allowed"`
	Code       Code          `json:"code,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}
