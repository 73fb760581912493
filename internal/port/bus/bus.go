// Package bus defines the port for publishing lifecycle events to the
// message bus. Downstream consumers (indexers, digests) subscribe out of
// process.
package bus

import "context"

// Subjects published by the core.
const (
	SubjectRunCompleted = "hivemind.runs.completed"
	SubjectRunFailed    = "hivemind.runs.failed"
	SubjectTickSummary  = "hivemind.ticks.summary"
	SubjectReproduction = "hivemind.population.reproduced"
)

// Publisher sends messages to the bus.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}
