package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "hivemind"

// StartTickSpan starts a span for one heartbeat tick.
func StartTickSpan(ctx context.Context) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "heartbeat.tick")
}

// StartCycleSpan starts a span for one agent's cognition cycle.
func StartCycleSpan(ctx context.Context, agentID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "cognition.cycle",
		trace.WithAttributes(
			attribute.String("agent.id", agentID),
		),
	)
}

// StartProviderSpan starts a span for one model invocation.
func StartProviderSpan(ctx context.Context, providerID, model string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "provider.invoke",
		trace.WithAttributes(
			attribute.String("provider.id", providerID),
			attribute.String("provider.model", model),
		),
	)
}
