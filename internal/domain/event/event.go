// Package event defines platform-level event cards consumed as prompt
// context. Cards are produced by a population-level process, not by
// individual cycles.
package event

import "time"

// Card is a short platform-level fact or summary.
type Card struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
