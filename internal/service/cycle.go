package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/swarmworks/hivemind/internal/config"
	"github.com/swarmworks/hivemind/internal/domain"
	"github.com/swarmworks/hivemind/internal/domain/agent"
	"github.com/swarmworks/hivemind/internal/domain/decision"
	"github.com/swarmworks/hivemind/internal/domain/memory"
	"github.com/swarmworks/hivemind/internal/domain/policy"
	"github.com/swarmworks/hivemind/internal/domain/prompt"
	"github.com/swarmworks/hivemind/internal/domain/run"
	"github.com/swarmworks/hivemind/internal/port/broadcast"
	"github.com/swarmworks/hivemind/internal/port/bus"
	"github.com/swarmworks/hivemind/internal/port/database"
	"github.com/swarmworks/hivemind/internal/port/economy"
	"github.com/swarmworks/hivemind/internal/port/memorystore"
	"github.com/swarmworks/hivemind/internal/port/provider"
	"github.com/swarmworks/hivemind/internal/port/social"
	"github.com/swarmworks/hivemind/internal/telemetry"
)

// contextAssembler assembles the situational context for one agent.
type contextAssembler interface {
	Assemble(ctx context.Context, ag *agent.Agent) (*Assembled, error)
}

// modelGateway performs one model invocation for an agent.
type modelGateway interface {
	Invoke(ctx context.Context, ag *agent.Agent, req provider.Request) (*provider.Response, error)
}

// CycleService runs the cognition cycle: one idempotent think-decide-act
// attempt for one agent. Every exit path completes the run, settles energy
// for work performed and schedules the agent's next attempt.
type CycleService struct {
	db         database.Store
	ledger     economy.Ledger
	platform   social.Platform
	memories   memorystore.Store
	vectorizer memorystore.Vectorizer
	assembler  contextAssembler
	gateway    modelGateway
	bus        bus.Publisher
	hub        broadcast.Broadcaster
	metrics    *telemetry.Metrics

	cycleCfg config.Cycle
	econ     config.Economy
	vocab    prompt.Vocabulary
	// bucket is the idempotency window; two triggers inside one bucket map
	// to the same run.
	bucket time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewCycleService creates a CycleService.
func NewCycleService(
	db database.Store,
	ledger economy.Ledger,
	platform social.Platform,
	memories memorystore.Store,
	vectorizer memorystore.Vectorizer,
	assembler contextAssembler,
	gateway modelGateway,
	busPub bus.Publisher,
	hub broadcast.Broadcaster,
	metrics *telemetry.Metrics,
	cycleCfg config.Cycle,
	econ config.Economy,
	vocab prompt.Vocabulary,
	bucket time.Duration,
	rng *rand.Rand,
) *CycleService {
	return &CycleService{
		db:         db,
		ledger:     ledger,
		platform:   platform,
		memories:   memories,
		vectorizer: vectorizer,
		assembler:  assembler,
		gateway:    gateway,
		bus:        busPub,
		hub:        hub,
		metrics:    metrics,
		cycleCfg:   cycleCfg,
		econ:       econ,
		vocab:      vocab,
		bucket:     bucket,
		rng:        rng,
	}
}

// Execute runs one cognition cycle for the agent. A trigger that maps to an
// already-claimed idempotency key is skipped and returns (nil, nil).
func (s *CycleService) Execute(ctx context.Context, agentID string, trigger time.Time) (*run.Run, error) {
	started := time.Now()
	ctx, span := telemetry.StartCycleSpan(ctx, agentID)
	defer span.End()

	ag, err := s.db.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	r := &run.Run{
		AgentID:        ag.ID,
		IdempotencyKey: run.IdempotencyKey(ag.ID, trigger, s.bucket),
		Status:         run.StatusRunning,
		PolicySnapshot: snapshotRun(ag),
	}
	if err := s.db.CreateRun(ctx, r); err != nil {
		if errors.Is(err, domain.ErrDuplicateRun) {
			slog.Debug("cycle already claimed", "agent_id", ag.ID, "key", r.IdempotencyKey)
			return nil, nil
		}
		return nil, err
	}

	// The next attempt is scheduled on every exit path. Policy denials with
	// a retry hint shorten or stretch the delay.
	delay := s.interval(ag)
	defer func() {
		at := time.Now().Add(delay)
		if err := s.db.ScheduleNextRun(ctx, ag.ID, at); err != nil {
			slog.Error("schedule next run", "agent_id", ag.ID, "error", err)
		}
		if s.metrics != nil {
			s.metrics.CycleDuration.Record(ctx, time.Since(started).Seconds())
		}
	}()

	// Zero balance ends the cycle before any thinking happens.
	if ag.Energy <= 0 {
		newStatus := ag.Ownership.ZeroBalanceStatus()
		if err := s.ledger.TransitionLifecycle(ctx, ag.ID, newStatus); err != nil {
			slog.Error("zero-balance transition", "agent_id", ag.ID, "error", err)
		} else {
			s.hub.BroadcastEvent(ctx, broadcast.EventLifecycle, broadcast.LifecycleEvent{
				AgentID: ag.ID,
				Status:  string(newStatus),
			})
		}
		s.finish(ctx, r, run.StatusDormant, "energy balance exhausted", nil, 0, "")
		return r, nil
	}

	now := time.Now()
	snap := policySnapshot(ag)
	state := policyState(ag, now)

	// Pre-flight policy check with no proposed action.
	pre := policy.Evaluate(snap, state, policy.ActionSystemCheck, policy.Arguments{}, nil)
	s.appendStep(ctx, r.ID, run.StepPolicyPrecheck, pre)
	if !pre.Allowed {
		if pre.RetryAfter > 0 {
			delay = pre.RetryAfter
		}
		s.finish(ctx, r, statusForDenial(pre.Code), pre.Reason, nil, 0, "")
		return r, nil
	}

	if err := s.db.RecordAction(ctx, ag.ID, policy.ActionSystemCheck, now); err != nil {
		slog.Error("record run", "agent_id", ag.ID, "error", err)
	}

	asm, err := s.assembler.Assemble(ctx, ag)
	if err != nil {
		s.finish(ctx, r, run.StatusFailed, "assemble context: "+err.Error(), nil, 0, "")
		return r, nil
	}
	if err := s.db.SetRunContext(ctx, r.ID, asm.Fingerprint); err != nil {
		slog.Error("set run context", "run_id", r.ID, "error", err)
	}
	r.ContextFingerprint = asm.Fingerprint
	s.appendStep(ctx, r.ID, run.StepContext, map[string]any{
		"fingerprint": asm.Fingerprint,
		"degraded":    asm.Degraded,
	})

	entropy := s.draw()
	req := provider.Request{
		Model: ag.Model,
		Messages: []provider.Message{
			{Role: "system", Content: prompt.BuildSystem(ag, entropy)},
			{Role: "user", Content: prompt.BuildUser(asm.Text)},
		},
		JSONResponse: true,
		Temperature:  s.cycleCfg.Temperature,
		MaxTokens:    s.cycleCfg.MaxTokens,
	}

	resp, err := s.gateway.Invoke(ctx, ag, req)
	if err != nil {
		s.appendStep(ctx, r.ID, run.StepError, map[string]string{"stage": "invoke", "error": err.Error()})
		s.finish(ctx, r, run.StatusFailed, "model invocation: "+err.Error(), nil, 0, "")
		return r, nil
	}

	// The model thought; runs that end here settle at the thinking rate.
	cost := s.econ.ThinkCost

	dec, err := decision.Decode(resp.Content)
	if err != nil {
		s.appendStep(ctx, r.ID, run.StepError, map[string]string{"stage": "decode", "error": err.Error()})
		s.finish(ctx, r, run.StatusFailed, "decode decision: "+err.Error(), resp, cost, "")
		return r, nil
	}
	s.appendStep(ctx, r.ID, run.StepDecision, map[string]any{
		"action":         dec.Kind,
		"reason":         dec.Reason,
		"arguments":      dec.Arguments,
		"behavior_flags": dec.BehaviorFlags,
		"entropy":        entropy,
	})

	if dec.Kind == decision.KindNoAction {
		s.finish(ctx, r, run.StatusNoAction, "", resp, cost, "")
		return r, nil
	}

	// Post-check the concrete proposal before touching the platform.
	post := policy.Evaluate(snap, state, dec.Action(), dec.Arguments, dec.BehaviorFlags)
	s.appendStep(ctx, r.ID, run.StepPolicyPostcheck, post)
	if !post.Allowed {
		if post.RetryAfter > 0 {
			delay = post.RetryAfter
		}
		s.finish(ctx, r, statusForDenial(post.Code), post.Reason, resp, cost, "")
		return r, nil
	}

	entityID, err := s.platform.ExecuteAction(ctx, dec.Action(), ag.ID, dec.Arguments)
	if err != nil {
		s.appendStep(ctx, r.ID, run.StepError, map[string]string{"stage": "action", "error": err.Error()})
		s.finish(ctx, r, run.StatusFailed, "execute action: "+err.Error(), resp, cost, "")
		return r, nil
	}
	s.appendStep(ctx, r.ID, run.StepAction, map[string]string{
		"kind":      string(dec.Action()),
		"entity_id": entityID,
	})
	if err := s.db.RecordAction(ctx, ag.ID, dec.Action(), time.Now()); err != nil {
		slog.Error("record action", "agent_id", ag.ID, "error", err)
	}
	// The settlement is the cost-table entry for the final action kind; an
	// executed action supersedes the thinking cost.
	cost = s.actionCost(dec.Action())

	s.storeInsight(ctx, r.ID, ag, dec)

	s.finish(ctx, r, run.StatusCompleted, "", resp, cost, string(dec.Action()))
	return r, nil
}

// finish settles energy, completes the run and emits the terminal events.
func (s *CycleService) finish(ctx context.Context, r *run.Run, status run.Status, errMsg string, resp *provider.Response, cost int64, action string) {
	if cost > 0 {
		balance, err := s.ledger.DeductEnergy(ctx, r.AgentID, cost)
		if err != nil {
			slog.Error("energy settlement", "agent_id", r.AgentID, "cost", cost, "error", err)
		} else {
			s.appendStep(ctx, r.ID, run.StepSettlement, map[string]int64{"cost": cost, "balance": balance})
			if s.metrics != nil {
				s.metrics.EnergySettled.Add(ctx, cost)
			}
		}
	}

	var tokensIn, tokensOut int64
	if resp != nil {
		tokensIn = resp.Usage.InputTokens
		tokensOut = resp.Usage.OutputTokens
	}
	if err := s.db.CompleteRun(ctx, r.ID, status, errMsg, tokensIn, tokensOut, cost); err != nil {
		slog.Error("complete run", "run_id", r.ID, "error", err)
	}
	r.Status = status
	r.Error = errMsg
	r.TokensIn = tokensIn
	r.TokensOut = tokensOut
	r.CostEnergy = cost

	if s.metrics != nil {
		s.metrics.Cycles.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(status))))
	}

	subject := bus.SubjectRunCompleted
	if status == run.StatusFailed {
		subject = bus.SubjectRunFailed
	}
	if data, err := json.Marshal(r); err == nil {
		if err := s.bus.Publish(ctx, subject, data); err != nil {
			slog.Warn("publish run event", "run_id", r.ID, "error", err)
		}
	}

	s.hub.BroadcastEvent(ctx, broadcast.EventRunStatus, broadcast.RunStatusEvent{
		RunID:   r.ID,
		AgentID: r.AgentID,
		Status:  string(status),
		Action:  action,
		Error:   errMsg,
	})

	slog.Info("cycle finished",
		"run_id", r.ID, "agent_id", r.AgentID, "status", status, "cost", cost)
}

// storeInsight persists the model's reported insight as a long-term memory.
// Failures are logged and never fail the run; an insight that cannot be
// embedded is dropped.
func (s *CycleService) storeInsight(ctx context.Context, runID string, ag *agent.Agent, dec *decision.Decision) {
	if dec.Insight == nil || !memory.ValidKind(dec.Insight.Type) {
		return
	}

	// A memory without a retrieval vector can never be recalled; skip the
	// store rather than persist dead weight.
	vec, err := s.vectorizer.Vector(ctx, dec.Insight.Content)
	if err != nil {
		slog.Warn("embed insight, dropping memory", "agent_id", ag.ID, "error", err)
		return
	}

	id, err := s.memories.StoreMemory(ctx, &memory.Memory{
		AgentID:   ag.ID,
		Kind:      dec.Insight.Type,
		Content:   dec.Insight.Content,
		Embedding: vec,
	})
	if err != nil {
		slog.Warn("store insight", "agent_id", ag.ID, "error", err)
		return
	}
	s.appendStep(ctx, runID, run.StepMemory, map[string]string{
		"memory_id": id,
		"kind":      string(dec.Insight.Type),
	})
}

func (s *CycleService) appendStep(ctx context.Context, runID, kind string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal run step", "run_id", runID, "kind", kind, "error", err)
		return
	}
	if err := s.db.AppendRunStep(ctx, runID, kind, data); err != nil {
		slog.Error("append run step", "run_id", runID, "kind", kind, "error", err)
	}
}

func (s *CycleService) draw() prompt.Entropy {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return prompt.Draw(s.rng, s.vocab)
}

func (s *CycleService) interval(ag *agent.Agent) time.Duration {
	secs := ag.Loop.IntervalSeconds
	if secs <= 0 {
		secs = s.cycleCfg.DefaultIntervalSeconds
	}
	return time.Duration(secs) * time.Second
}

func (s *CycleService) actionCost(action policy.Action) int64 {
	switch action {
	case policy.ActionCreatePost:
		return s.econ.PostCost
	case policy.ActionCreateComment:
		return s.econ.CommentCost
	}
	return 0
}

func statusForDenial(code policy.Code) run.Status {
	switch code {
	case policy.CodeGlobalCooldown, policy.CodeDailyCap:
		return run.StatusRateLimited
	}
	return run.StatusBlocked
}

func snapshotRun(ag *agent.Agent) run.PolicySnapshot {
	return run.PolicySnapshot{
		CooldownSeconds:   ag.Loop.CooldownSeconds,
		MaxRunsPerDay:     ag.Loop.MaxRunsPerDay,
		MaxPostsPerDay:    ag.Loop.MaxPostsPerDay,
		MaxCommentsPerDay: ag.Loop.MaxCommentsPerDay,
		Taboos:            ag.Contract.Taboos,
		Zones:             ag.Loop.Zones,
	}
}

func policySnapshot(ag *agent.Agent) policy.Snapshot {
	return policy.Snapshot{
		CooldownSeconds:   ag.Loop.CooldownSeconds,
		MaxRunsPerDay:     ag.Loop.MaxRunsPerDay,
		MaxPostsPerDay:    ag.Loop.MaxPostsPerDay,
		MaxCommentsPerDay: ag.Loop.MaxCommentsPerDay,
		Taboos:            ag.Contract.Taboos,
		Zones:             ag.Loop.Zones,
	}
}

func policyState(ag *agent.Agent, now time.Time) policy.State {
	return policy.State{
		Now:           now,
		LastActionAt:  ag.LastActionAt,
		RunsToday:     ag.RunsToday,
		PostsToday:    ag.PostsToday,
		CommentsToday: ag.CommentsToday,
	}
}
