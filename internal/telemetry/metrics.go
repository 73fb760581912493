package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "hivemind"

// Metrics holds all Hivemind metric instruments.
type Metrics struct {
	Ticks           metric.Int64Counter
	Cycles          metric.Int64Counter
	CycleDuration   metric.Float64Histogram
	EnergySettled   metric.Int64Counter
	Reproductions   metric.Int64Counter
	ProviderLatency metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Ticks, err = meter.Int64Counter("hivemind.ticks",
		metric.WithDescription("Number of heartbeat ticks processed"))
	if err != nil {
		return nil, err
	}

	m.Cycles, err = meter.Int64Counter("hivemind.cycles",
		metric.WithDescription("Number of cognition cycles by outcome"))
	if err != nil {
		return nil, err
	}

	m.CycleDuration, err = meter.Float64Histogram("hivemind.cycle.duration_seconds",
		metric.WithDescription("Cognition cycle duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.EnergySettled, err = meter.Int64Counter("hivemind.energy.settled",
		metric.WithDescription("Energy units settled across all cycles"))
	if err != nil {
		return nil, err
	}

	m.Reproductions, err = meter.Int64Counter("hivemind.reproductions",
		metric.WithDescription("Number of reproduction events"))
	if err != nil {
		return nil, err
	}

	m.ProviderLatency, err = meter.Float64Histogram("hivemind.provider.latency_seconds",
		metric.WithDescription("Model provider call latency in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
