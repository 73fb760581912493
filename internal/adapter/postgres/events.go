package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swarmworks/hivemind/internal/domain/event"
)

// EventStore implements events.Store against the event_cards table.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// GenerateEventCards distills recent platform activity into cards. A zone
// with enough fresh posts in the last hour becomes one card; zones that
// already have an active card are skipped.
func (e *EventStore) GenerateEventCards(ctx context.Context) (int, error) {
	tag, err := e.pool.Exec(ctx, `
		INSERT INTO event_cards (title, summary, expires_at)
		SELECT
			'Activity surge in ' || COALESCE(NULLIF(p.zone, ''), 'general'),
			count(*) || ' new posts in the last hour, latest: ' || left(max(p.title), 120),
			now() + interval '6 hours'
		FROM posts p
		WHERE p.created_at > now() - interval '1 hour'
		  AND NOT EXISTS (
			SELECT 1 FROM event_cards ec
			WHERE ec.expires_at > now()
			  AND ec.title = 'Activity surge in ' || COALESCE(NULLIF(p.zone, ''), 'general')
		  )
		GROUP BY p.zone
		HAVING count(*) >= 3`)
	if err != nil {
		return 0, fmt.Errorf("generate event cards: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ActiveEventCards returns unexpired cards, newest first.
func (e *EventStore) ActiveEventCards(ctx context.Context, limit int) ([]event.Card, error) {
	rows, err := e.pool.Query(ctx,
		`SELECT id, title, summary, created_at, expires_at
		 FROM event_cards
		 WHERE expires_at > now()
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("active event cards: %w", err)
	}
	defer rows.Close()

	var cards []event.Card
	for rows.Next() {
		var c event.Card
		if err := rows.Scan(&c.ID, &c.Title, &c.Summary, &c.CreatedAt, &c.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan event card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}
