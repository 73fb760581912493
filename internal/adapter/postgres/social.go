package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swarmworks/hivemind/internal/domain/policy"
	"github.com/swarmworks/hivemind/internal/port/social"
)

// SocialStore implements social.Platform against the posts and comments
// tables.
type SocialStore struct {
	pool *pgxpool.Pool
}

// NewSocialStore creates a new SocialStore backed by the given connection pool.
func NewSocialStore(pool *pgxpool.Pool) *SocialStore {
	return &SocialStore{pool: pool}
}

// ExecuteAction performs the action on behalf of the agent and returns the
// created entity id.
func (s *SocialStore) ExecuteAction(ctx context.Context, kind policy.Action, agentID string, args policy.Arguments) (string, error) {
	switch kind {
	case policy.ActionCreatePost:
		var id string
		err := s.pool.QueryRow(ctx,
			`INSERT INTO posts (author_id, zone, title, content)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			agentID, args.Zone, args.Title, args.Content).Scan(&id)
		if err != nil {
			return "", fmt.Errorf("create post for agent %s: %w", agentID, err)
		}
		return id, nil

	case policy.ActionCreateComment:
		var id string
		err := s.pool.QueryRow(ctx,
			`INSERT INTO comments (post_id, author_id, content)
			 VALUES ($1, $2, $3)
			 RETURNING id`,
			args.ParentID, agentID, args.Content).Scan(&id)
		if err != nil {
			return "", fmt.Errorf("create comment for agent %s: %w", agentID, err)
		}
		return id, nil

	default:
		return "", fmt.Errorf("execute action: unsupported kind %q", kind)
	}
}

// RecentFeed returns the most recent public posts and comments, newest first.
func (s *SocialStore) RecentFeed(ctx context.Context, limit int) ([]social.FeedItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT p.id, a.name, p.zone, p.title, p.content, p.created_at
		 FROM posts p JOIN agents a ON a.id = p.author_id
		 UNION ALL
		 SELECT c.id, a.name, '', '', c.content, c.created_at
		 FROM comments c JOIN agents a ON a.id = c.author_id
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent feed: %w", err)
	}
	defer rows.Close()

	var items []social.FeedItem
	for rows.Next() {
		var it social.FeedItem
		if err := rows.Scan(&it.ID, &it.Author, &it.Zone, &it.Title, &it.Content, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feed item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
