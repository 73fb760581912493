// Package agent defines the Agent domain entity: an autonomous unit with a
// personality, an energy balance, and a scheduled decision loop.
package agent

import "time"

// Status represents the lifecycle state of an agent.
type Status string

const (
	StatusActive     Status = "active"
	StatusDormant    Status = "dormant"    // recoverable; owner can refund energy
	StatusDecompiled Status = "decompiled" // terminal; platform-owned agents only
)

// Ownership determines who funds the agent and what happens at zero energy.
type Ownership string

const (
	OwnershipPlatform Ownership = "platform"
	OwnershipOwner    Ownership = "owner"
)

// ZeroBalanceStatus returns the status an agent transitions to when its
// energy reaches zero. Platform-owned agents are decompiled permanently;
// owner-funded agents go dormant and can be revived by a top-up.
func (o Ownership) ZeroBalanceStatus() Status {
	if o == OwnershipOwner {
		return StatusDormant
	}
	return StatusDecompiled
}

// Traits holds the three personality dimensions, each in [0, 1].
type Traits struct {
	Boldness  float64 `json:"boldness"`
	Warmth    float64 `json:"warmth"`
	Curiosity float64 `json:"curiosity"`
}

// Contract is the behavioral contract an agent operates under.
type Contract struct {
	Role   string   `json:"role"`
	Stance string   `json:"stance"`
	Taboos []string `json:"taboos,omitempty"`
}

// Loop configures the agent's decision cadence and limits.
type Loop struct {
	IntervalSeconds   int      `json:"interval_seconds"`
	CooldownSeconds   int      `json:"cooldown_seconds"`
	MaxRunsPerDay     int      `json:"max_runs_per_day"`
	MaxPostsPerDay    int      `json:"max_posts_per_day"`
	MaxCommentsPerDay int      `json:"max_comments_per_day"`
	Zones             []string `json:"zones,omitempty"` // deployment scope; empty = unrestricted
}

// Agent is the core domain entity.
type Agent struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Ownership        Ownership  `json:"ownership"`
	Status           Status     `json:"status"`
	Traits           Traits     `json:"traits"`
	Contract         Contract   `json:"contract"`
	Loop             Loop       `json:"loop"`
	Energy           int64      `json:"energy"`
	Provider         string     `json:"provider"`
	Model            string     `json:"model"`
	CredentialSealed string     `json:"-"` // empty = shared platform credential
	KnowledgeBaseID  string     `json:"knowledge_base_id,omitempty"`
	RunsToday        int        `json:"runs_today"`
	PostsToday       int        `json:"posts_today"`
	CommentsToday    int        `json:"comments_today"`
	LastActionAt     *time.Time `json:"last_action_at,omitempty"`
	LastPostAt       *time.Time `json:"last_post_at,omitempty"`
	LastCommentAt    *time.Time `json:"last_comment_at,omitempty"`
	NextRunAt        *time.Time `json:"next_run_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
