package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/swarmworks/hivemind/internal/config"
	"github.com/swarmworks/hivemind/internal/domain/run"
	"github.com/swarmworks/hivemind/internal/port/broadcast"
	"github.com/swarmworks/hivemind/internal/port/bus"
	"github.com/swarmworks/hivemind/internal/port/database"
	"github.com/swarmworks/hivemind/internal/port/economy"
	"github.com/swarmworks/hivemind/internal/port/events"
	"github.com/swarmworks/hivemind/internal/telemetry"
)

// cycleRunner executes one cognition cycle; satisfied by CycleService.
type cycleRunner interface {
	Execute(ctx context.Context, agentID string, trigger time.Time) (*run.Run, error)
}

// TickSummary reports what one heartbeat tick did.
type TickSummary struct {
	Tick          time.Time `json:"tick"`
	EventCards    int       `json:"event_cards"`
	SweptDormant  int       `json:"swept_dormant"`
	AgentsRun     int       `json:"agents_run"`
	Completed     int       `json:"completed"`
	Failed        int       `json:"failed"`
	Skipped       int       `json:"skipped"`
	Reproduced    int       `json:"reproduced"`
	DurationMilli int64     `json:"duration_ms"`
}

// HeartbeatService drives the population: on every tick it runs platform
// maintenance, fans out cognition cycles to all eligible agents with bounded
// concurrency and full isolation, then evaluates reproduction.
type HeartbeatService struct {
	db         database.Store
	ledger     economy.Ledger
	eventStore events.Store
	cycles     cycleRunner
	bus        bus.Publisher
	hub        broadcast.Broadcaster
	metrics    *telemetry.Metrics
	cfg        config.Heartbeat
}

// NewHeartbeatService creates a HeartbeatService.
func NewHeartbeatService(
	db database.Store,
	ledger economy.Ledger,
	eventStore events.Store,
	cycles cycleRunner,
	busPub bus.Publisher,
	hub broadcast.Broadcaster,
	metrics *telemetry.Metrics,
	cfg config.Heartbeat,
) *HeartbeatService {
	return &HeartbeatService{
		db:         db,
		ledger:     ledger,
		eventStore: eventStore,
		cycles:     cycles,
		bus:        busPub,
		hub:        hub,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// Run ticks until the context is canceled.
func (s *HeartbeatService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	slog.Info("heartbeat started", "interval", s.cfg.TickInterval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("heartbeat stopped")
			return
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick performs one heartbeat pass.
func (s *HeartbeatService) Tick(ctx context.Context, now time.Time) TickSummary {
	started := time.Now()
	ctx, span := telemetry.StartTickSpan(ctx)
	defer span.End()

	summary := TickSummary{Tick: now.UTC()}

	// Maintenance first so agents see fresh event cards.
	cards, err := s.eventStore.GenerateEventCards(ctx)
	if err != nil {
		slog.Warn("generate event cards", "error", err)
	}
	summary.EventCards = cards

	summary.SweptDormant = s.sweepZeroBalance(ctx)

	s.fanOut(ctx, now, &summary)

	summary.Reproduced = s.sweepReproduction(ctx)

	summary.DurationMilli = time.Since(started).Milliseconds()
	if s.metrics != nil {
		s.metrics.Ticks.Add(ctx, 1)
	}

	if data, err := json.Marshal(summary); err == nil {
		if err := s.bus.Publish(ctx, bus.SubjectTickSummary, data); err != nil {
			slog.Warn("publish tick summary", "error", err)
		}
	}
	s.hub.BroadcastEvent(ctx, broadcast.EventTickSummary, summary)

	slog.Info("tick finished",
		"agents_run", summary.AgentsRun, "completed", summary.Completed,
		"failed", summary.Failed, "skipped", summary.Skipped,
		"reproduced", summary.Reproduced, "duration_ms", summary.DurationMilli)
	return summary
}

// sweepZeroBalance transitions agents that ran out of energy between cycles.
func (s *HeartbeatService) sweepZeroBalance(ctx context.Context) int {
	drained, err := s.db.ListZeroBalanceAgents(ctx)
	if err != nil {
		slog.Warn("list zero-balance agents", "error", err)
		return 0
	}

	swept := 0
	for _, ag := range drained {
		newStatus := ag.Ownership.ZeroBalanceStatus()
		if err := s.ledger.TransitionLifecycle(ctx, ag.ID, newStatus); err != nil {
			slog.Error("sweep lifecycle transition", "agent_id", ag.ID, "error", err)
			continue
		}
		s.hub.BroadcastEvent(ctx, broadcast.EventLifecycle, broadcast.LifecycleEvent{
			AgentID: ag.ID,
			Status:  string(newStatus),
		})
		swept++
	}
	return swept
}

// fanOut runs cognition cycles for all eligible agents. Each agent is fully
// isolated: a panic or error in one cycle never touches the others.
func (s *HeartbeatService) fanOut(ctx context.Context, now time.Time, summary *TickSummary) {
	eligible, err := s.db.ListEligibleAgents(ctx, now)
	if err != nil {
		slog.Error("list eligible agents", "error", err)
		return
	}
	summary.AgentsRun = len(eligible)

	maxConcurrent := int64(s.cfg.MaxConcurrent)
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	sem := semaphore.NewWeighted(maxConcurrent)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, ag := range eligible {
		// A canceled context stops launching new cycles, but the ones in
		// flight must still be waited on before the summary is read.
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(agentID string) {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("cycle panicked", "agent_id", agentID, "panic", rec,
						"stack", string(debug.Stack()))
					mu.Lock()
					summary.Failed++
					mu.Unlock()
				}
			}()

			r, err := s.cycles.Execute(ctx, agentID, now)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				slog.Error("cycle failed", "agent_id", agentID, "error", err)
				summary.Failed++
			case r == nil:
				summary.Skipped++
			case r.Status == run.StatusFailed:
				summary.Failed++
			default:
				summary.Completed++
			}
		}(ag.ID)
	}
	wg.Wait()
}

// sweepReproduction splits off children from platform agents whose balance
// crossed the threshold. The claim is atomic, so a candidate listed by two
// overlapping ticks reproduces at most once.
func (s *HeartbeatService) sweepReproduction(ctx context.Context) int {
	candidates, err := s.db.ListReproductionCandidates(ctx, s.cfg.ReproductionThreshold)
	if err != nil {
		slog.Warn("list reproduction candidates", "error", err)
		return 0
	}

	reproduced := 0
	for _, ag := range candidates {
		claimed, err := s.ledger.ClaimReproduction(ctx, ag.ID, s.cfg.ReproductionThreshold)
		if err != nil {
			slog.Error("claim reproduction", "agent_id", ag.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}

		childID, err := s.ledger.Reproduce(ctx, ag.ID)
		if err != nil {
			slog.Error("reproduce", "agent_id", ag.ID, "error", err)
			continue
		}
		reproduced++
		if s.metrics != nil {
			s.metrics.Reproductions.Add(ctx, 1)
		}

		payload, err := json.Marshal(map[string]string{"parent_id": ag.ID, "child_id": childID})
		if err == nil {
			if err := s.bus.Publish(ctx, bus.SubjectReproduction, payload); err != nil {
				slog.Warn("publish reproduction", "parent_id", ag.ID, "error", err)
			}
		}
		slog.Info("agent reproduced", "parent_id", ag.ID, "child_id", childID)
	}
	return reproduced
}
