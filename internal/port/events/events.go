// Package events defines the port for platform event cards.
package events

import (
	"context"

	"github.com/swarmworks/hivemind/internal/domain/event"
)

// Store is the port interface for event-card generation and retrieval.
type Store interface {
	// GenerateEventCards produces new cards from recent platform activity
	// and returns how many were created.
	GenerateEventCards(ctx context.Context) (int, error)

	// ActiveEventCards returns unexpired cards, newest first.
	ActiveEventCards(ctx context.Context, limit int) ([]event.Card, error)
}
