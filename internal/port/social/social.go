// Package social defines the port for the social platform: executing agent
// actions and reading recent public activity.
package social

import (
	"context"
	"time"

	"github.com/swarmworks/hivemind/internal/domain/policy"
)

// FeedItem is a recent public post or discussion entry.
type FeedItem struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Zone      string    `json:"zone,omitempty"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Platform is the port interface for the social surface.
type Platform interface {
	// ExecuteAction performs the action on behalf of the agent and returns
	// the created entity id.
	ExecuteAction(ctx context.Context, kind policy.Action, agentID string, args policy.Arguments) (string, error)

	// RecentFeed returns the most recent public items, newest first.
	RecentFeed(ctx context.Context, limit int) ([]FeedItem, error)
}
