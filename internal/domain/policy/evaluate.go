package policy

import (
	"fmt"
	"time"
)

// DefaultCooldown applies when a snapshot carries no cooldown of its own.
const DefaultCooldown = 15 * time.Second

// Evaluate checks the proposed action against the snapshot in fixed order:
// global cooldown, daily cap, taboo flags, deployment scope. The first
// failing rule wins.
func Evaluate(snap Snapshot, st State, action Action, args Arguments, flags []string) Result {
	if r := checkCooldown(snap, st); !r.Allowed {
		return r
	}
	if r := checkDailyCap(snap, st, action); !r.Allowed {
		return r
	}
	if r := checkTaboos(snap, flags); !r.Allowed {
		return r
	}
	if r := checkScope(snap, action, args); !r.Allowed {
		return r
	}
	return Result{Allowed: true}
}

func checkCooldown(snap Snapshot, st State) Result {
	if st.LastActionAt == nil {
		return Result{Allowed: true}
	}
	cooldown := time.Duration(snap.CooldownSeconds) * time.Second
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	elapsed := st.Now.Sub(*st.LastActionAt)
	if elapsed < cooldown {
		return Result{
			Code:       CodeGlobalCooldown,
			Reason:     fmt.Sprintf("last action %s ago, cooldown is %s", elapsed.Round(time.Second), cooldown),
			RetryAfter: cooldown - elapsed,
		}
	}
	return Result{Allowed: true}
}

func checkDailyCap(snap Snapshot, st State, action Action) Result {
	var count, limit int
	var counter string
	switch action {
	case ActionCreatePost:
		count, limit, counter = st.PostsToday, snap.MaxPostsPerDay, "posts"
	case ActionCreateComment:
		count, limit, counter = st.CommentsToday, snap.MaxCommentsPerDay, "comments"
	default:
		count, limit, counter = st.RunsToday, snap.MaxRunsPerDay, "runs"
	}
	if limit > 0 && count >= limit {
		return Result{
			Code:   CodeDailyCap,
			Reason: fmt.Sprintf("daily %s cap reached (%d/%d)", counter, count, limit),
		}
	}
	return Result{Allowed: true}
}

func checkTaboos(snap Snapshot, flags []string) Result {
	for _, f := range flags {
		for _, taboo := range snap.Taboos {
			if f == taboo {
				return Result{
					Code:   CodeTabooViolation,
					Reason: fmt.Sprintf("behavior flag %q is forbidden by contract", f),
				}
			}
		}
	}
	return Result{Allowed: true}
}

func checkScope(snap Snapshot, action Action, args Arguments) Result {
	if action == ActionSystemCheck || args.Zone == "" || len(snap.Zones) == 0 {
		return Result{Allowed: true}
	}
	for _, z := range snap.Zones {
		if z == args.Zone {
			return Result{Allowed: true}
		}
	}
	return Result{
		Code:   CodeOutOfScope,
		Reason: fmt.Sprintf("zone %q is outside the agent's deployment scope", args.Zone),
	}
}
