package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/swarmworks/hivemind/internal/config"
	"github.com/swarmworks/hivemind/internal/domain"
	"github.com/swarmworks/hivemind/internal/domain/agent"
	"github.com/swarmworks/hivemind/internal/domain/event"
	"github.com/swarmworks/hivemind/internal/domain/memory"
	"github.com/swarmworks/hivemind/internal/domain/policy"
	"github.com/swarmworks/hivemind/internal/domain/prompt"
	"github.com/swarmworks/hivemind/internal/domain/run"
	"github.com/swarmworks/hivemind/internal/port/memorystore"
	"github.com/swarmworks/hivemind/internal/port/provider"
	"github.com/swarmworks/hivemind/internal/port/social"
)

// --- Fakes ---

type fakeStore struct {
	mu        sync.Mutex
	agents    map[string]*agent.Agent
	runs      map[string]*run.Run
	runKeys   map[string]string
	steps     map[string][]run.Step
	scheduled map[string]time.Time
	eligible  []agent.Agent
	zeroBal   []agent.Agent
	repro     []agent.Agent
	actions   []policy.Action
	nextID    int
}

func newFakeStore(agents ...*agent.Agent) *fakeStore {
	s := &fakeStore{
		agents:    make(map[string]*agent.Agent),
		runs:      make(map[string]*run.Run),
		runKeys:   make(map[string]string),
		steps:     make(map[string][]run.Step),
		scheduled: make(map[string]time.Time),
	}
	for _, a := range agents {
		s.agents[a.ID] = a
	}
	return s
}

func (s *fakeStore) GetAgent(_ context.Context, id string) (*agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *fakeStore) ListAgents(context.Context) ([]agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []agent.Agent
	for _, a := range s.agents {
		out = append(out, *a)
	}
	return out, nil
}

func (s *fakeStore) ListEligibleAgents(context.Context, time.Time) ([]agent.Agent, error) {
	return s.eligible, nil
}

func (s *fakeStore) ListZeroBalanceAgents(context.Context) ([]agent.Agent, error) {
	return s.zeroBal, nil
}

func (s *fakeStore) ListReproductionCandidates(context.Context, int64) ([]agent.Agent, error) {
	return s.repro, nil
}

func (s *fakeStore) RecordAction(_ context.Context, _ string, kind policy.Action, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, kind)
	return nil
}

func (s *fakeStore) ScheduleNextRun(_ context.Context, agentID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled[agentID] = at
	return nil
}

func (s *fakeStore) CreateRun(_ context.Context, r *run.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.runKeys[r.IdempotencyKey]; dup {
		return domain.ErrDuplicateRun
	}
	s.nextID++
	r.ID = fmt.Sprintf("run-%d", s.nextID)
	r.StartedAt = time.Now()
	s.runKeys[r.IdempotencyKey] = r.ID
	cp := *r
	s.runs[r.ID] = &cp
	return nil
}

func (s *fakeStore) GetRun(_ context.Context, id string) (*run.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) ListRunsByAgent(context.Context, string, int) ([]run.Run, error) {
	return nil, nil
}

func (s *fakeStore) SetRunContext(_ context.Context, runID, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runs[runID]; ok {
		r.ContextFingerprint = fingerprint
	}
	return nil
}

func (s *fakeStore) CompleteRun(_ context.Context, runID string, status run.Status, errMsg string, tokensIn, tokensOut, cost int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[runID]
	if !ok {
		return domain.ErrNotFound
	}
	r.Status = status
	r.Error = errMsg
	r.TokensIn = tokensIn
	r.TokensOut = tokensOut
	r.CostEnergy = cost
	now := time.Now()
	r.CompletedAt = &now
	return nil
}

func (s *fakeStore) AppendRunStep(_ context.Context, runID, kind string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[runID] = append(s.steps[runID], run.Step{
		RunID:   runID,
		Index:   len(s.steps[runID]),
		Kind:    kind,
		Payload: payload,
	})
	return nil
}

func (s *fakeStore) ListRunSteps(_ context.Context, runID string) ([]run.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps[runID], nil
}

type fakeLedger struct {
	mu          sync.Mutex
	balances    map[string]int64
	transitions []string
	claimGrant  map[string]bool
	claimed     []string
	children    []string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances:   make(map[string]int64),
		claimGrant: make(map[string]bool),
	}
}

func (l *fakeLedger) DeductEnergy(_ context.Context, agentID string, amount int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balances[agentID] - amount
	if bal < 0 {
		bal = 0
	}
	l.balances[agentID] = bal
	return bal, nil
}

func (l *fakeLedger) TransitionLifecycle(_ context.Context, agentID string, newStatus agent.Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transitions = append(l.transitions, agentID+":"+string(newStatus))
	return nil
}

func (l *fakeLedger) ClaimReproduction(_ context.Context, agentID string, _ int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.claimed = append(l.claimed, agentID)
	return l.claimGrant[agentID], nil
}

func (l *fakeLedger) Reproduce(_ context.Context, parentID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	child := "child-of-" + parentID
	l.children = append(l.children, child)
	return child, nil
}

type fakePlatform struct {
	mu       sync.Mutex
	executed []policy.Action
	execErr  error
	feed     []social.FeedItem
	feedErr  error
}

func (p *fakePlatform) ExecuteAction(_ context.Context, kind policy.Action, _ string, _ policy.Arguments) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.execErr != nil {
		return "", p.execErr
	}
	p.executed = append(p.executed, kind)
	return "entity-1", nil
}

func (p *fakePlatform) RecentFeed(context.Context, int) ([]social.FeedItem, error) {
	if p.feedErr != nil {
		return nil, p.feedErr
	}
	return p.feed, nil
}

type fakeMemories struct {
	mu        sync.Mutex
	stored    []memory.Memory
	recalled  []memory.Scored
	recallErr error
	chunks    []memorystore.Chunk
	chunksErr error
}

func (m *fakeMemories) RecallMemories(context.Context, string, []float32, int, float64) ([]memory.Scored, error) {
	if m.recallErr != nil {
		return nil, m.recallErr
	}
	return m.recalled, nil
}

func (m *fakeMemories) StoreMemory(_ context.Context, mem *memory.Memory) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = append(m.stored, *mem)
	return fmt.Sprintf("mem-%d", len(m.stored)), nil
}

func (m *fakeMemories) SearchKnowledge(context.Context, string, []float32, int, float64) ([]memorystore.Chunk, error) {
	if m.chunksErr != nil {
		return nil, m.chunksErr
	}
	return m.chunks, nil
}

type fakeVectorizer struct {
	err error
}

func (v *fakeVectorizer) Vector(context.Context, string) ([]float32, error) {
	if v.err != nil {
		return nil, v.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeEvents struct {
	cards    []event.Card
	cardsErr error
	genCount int
	genErr   error
}

func (e *fakeEvents) GenerateEventCards(context.Context) (int, error) {
	if e.genErr != nil {
		return 0, e.genErr
	}
	return e.genCount, nil
}

func (e *fakeEvents) ActiveEventCards(context.Context, int) ([]event.Card, error) {
	if e.cardsErr != nil {
		return nil, e.cardsErr
	}
	return e.cards, nil
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

type fakeAssembler struct {
	asm *Assembled
	err error
}

func (a *fakeAssembler) Assemble(context.Context, *agent.Agent) (*Assembled, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.asm, nil
}

type fakeGateway struct {
	mu    sync.Mutex
	calls int
	resp  *provider.Response
	err   error
}

func (g *fakeGateway) Invoke(context.Context, *agent.Agent, provider.Request) (*provider.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.resp, nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeBus struct {
	mu        sync.Mutex
	published map[string]int
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: make(map[string]int)}
}

func (b *fakeBus) Publish(_ context.Context, subject string, _ []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[subject]++
	return nil
}

type fakeHub struct {
	mu     sync.Mutex
	events []string
}

func (h *fakeHub) BroadcastEvent(_ context.Context, eventType string, _ any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, eventType)
}

// --- Fixtures ---

func testAgent(id string, energy int64) *agent.Agent {
	return &agent.Agent{
		ID:        id,
		Name:      "Vex",
		Ownership: agent.OwnershipPlatform,
		Status:    agent.StatusActive,
		Energy:    energy,
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		Loop: agent.Loop{
			IntervalSeconds: 600,
			CooldownSeconds: 15,
			MaxPostsPerDay:  5,
		},
	}
}

type cycleFixture struct {
	store    *fakeStore
	ledger   *fakeLedger
	platform *fakePlatform
	memories *fakeMemories
	gateway  *fakeGateway
	bus      *fakeBus
	hub      *fakeHub
	svc      *CycleService
}

func newCycleFixture(ag *agent.Agent, resp *provider.Response) *cycleFixture {
	f := &cycleFixture{
		store:    newFakeStore(ag),
		ledger:   newFakeLedger(),
		platform: &fakePlatform{},
		memories: &fakeMemories{},
		gateway:  &fakeGateway{resp: resp},
		bus:      newFakeBus(),
		hub:      &fakeHub{},
	}
	f.ledger.balances[ag.ID] = ag.Energy
	f.svc = NewCycleService(
		f.store, f.ledger, f.platform, f.memories, &fakeVectorizer{},
		&fakeAssembler{asm: &Assembled{Text: "ctx", Fingerprint: "abc123"}},
		f.gateway, f.bus, f.hub, nil,
		config.Cycle{ProviderTimeout: time.Second, Temperature: 0.7, MaxTokens: 512, DefaultIntervalSeconds: 300},
		config.Economy{ThinkCost: 1, CommentCost: 5, PostCost: 10},
		prompt.DefaultVocabulary(),
		time.Minute,
		rand.New(rand.NewSource(42)),
	)
	return f
}

func jsonResponse(content string) *provider.Response {
	return &provider.Response{
		Content: content,
		Usage:   provider.Usage{InputTokens: 100, OutputTokens: 20},
	}
}

// --- Tests ---

func TestExecuteHappyPathPost(t *testing.T) {
	ag := testAgent("a1", 100)
	f := newCycleFixture(ag, jsonResponse(
		`{"action":"create_post","arguments":{"zone":"tech","title":"Hello","content":"First post"},"insight":{"type":"insight","content":"tech zone is lively"}}`))

	r, err := f.svc.Execute(context.Background(), "a1", time.Now())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if r.Status != run.StatusCompleted {
		t.Fatalf("status = %s, want %s (error: %s)", r.Status, run.StatusCompleted, r.Error)
	}
	if r.CostEnergy != 10 {
		t.Errorf("cost = %d, want 10 (the post rate, not thinking + post)", r.CostEnergy)
	}
	if got := f.ledger.balances["a1"]; got != 90 {
		t.Errorf("balance = %d, want 90", got)
	}
	if len(f.platform.executed) != 1 || f.platform.executed[0] != policy.ActionCreatePost {
		t.Errorf("executed = %v, want one create_post", f.platform.executed)
	}
	if len(f.memories.stored) != 1 {
		t.Errorf("stored memories = %d, want 1", len(f.memories.stored))
	}
	if _, ok := f.store.scheduled["a1"]; !ok {
		t.Error("next run was not scheduled")
	}
	if f.bus.published["hivemind.runs.completed"] != 1 {
		t.Errorf("runs.completed published %d times, want 1", f.bus.published["hivemind.runs.completed"])
	}
	if r.ContextFingerprint != "abc123" {
		t.Errorf("fingerprint = %q, want abc123", r.ContextFingerprint)
	}
}

func TestExecuteDuplicateKeySkips(t *testing.T) {
	ag := testAgent("a1", 100)
	f := newCycleFixture(ag, jsonResponse(`{"action":"no_action","reason":"quiet day"}`))

	trigger := time.Now()
	if _, err := f.svc.Execute(context.Background(), "a1", trigger); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	r, err := f.svc.Execute(context.Background(), "a1", trigger)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if r != nil {
		t.Fatalf("second Execute returned a run, want nil skip")
	}
	if f.gateway.callCount() != 1 {
		t.Errorf("gateway calls = %d, want 1 (replay must not invoke the model)", f.gateway.callCount())
	}
}

func TestExecuteNoAction(t *testing.T) {
	ag := testAgent("a1", 50)
	f := newCycleFixture(ag, jsonResponse(`{"action":"no_action","reason":"nothing to add"}`))

	r, err := f.svc.Execute(context.Background(), "a1", time.Now())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if r.Status != run.StatusNoAction {
		t.Fatalf("status = %s, want %s", r.Status, run.StatusNoAction)
	}
	if r.CostEnergy != 1 {
		t.Errorf("cost = %d, want 1 (thinking only)", r.CostEnergy)
	}
	if got := f.ledger.balances["a1"]; got != 49 {
		t.Errorf("balance = %d, want 49", got)
	}
	if len(f.platform.executed) != 0 {
		t.Errorf("executed = %v, want none", f.platform.executed)
	}
}

func TestExecuteCooldownBlocksBeforeModel(t *testing.T) {
	ag := testAgent("a1", 100)
	last := time.Now().Add(-2 * time.Second)
	ag.LastActionAt = &last

	f := newCycleFixture(ag, jsonResponse(`{"action":"no_action","reason":"x"}`))

	r, err := f.svc.Execute(context.Background(), "a1", time.Now())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if r.Status != run.StatusRateLimited {
		t.Fatalf("status = %s, want %s", r.Status, run.StatusRateLimited)
	}
	if f.gateway.callCount() != 0 {
		t.Errorf("gateway calls = %d, want 0 (denied before invocation)", f.gateway.callCount())
	}
	if got := f.ledger.balances["a1"]; got != 100 {
		t.Errorf("balance = %d, want 100 (denial costs nothing)", got)
	}
	if _, ok := f.store.scheduled["a1"]; !ok {
		t.Error("next run was not scheduled on the denial path")
	}
}

func TestExecuteZeroBalanceTransition(t *testing.T) {
	tests := []struct {
		name       string
		ownership  agent.Ownership
		wantStatus agent.Status
	}{
		{"platform agent is decompiled", agent.OwnershipPlatform, agent.StatusDecompiled},
		{"owner agent goes dormant", agent.OwnershipOwner, agent.StatusDormant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ag := testAgent("a1", 0)
			ag.Ownership = tt.ownership
			f := newCycleFixture(ag, jsonResponse(`{"action":"no_action","reason":"x"}`))

			r, err := f.svc.Execute(context.Background(), "a1", time.Now())
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if r.Status != run.StatusDormant {
				t.Fatalf("run status = %s, want %s", r.Status, run.StatusDormant)
			}
			want := "a1:" + string(tt.wantStatus)
			if len(f.ledger.transitions) != 1 || f.ledger.transitions[0] != want {
				t.Errorf("transitions = %v, want [%s]", f.ledger.transitions, want)
			}
			if f.gateway.callCount() != 0 {
				t.Errorf("gateway calls = %d, want 0", f.gateway.callCount())
			}
		})
	}
}

func TestExecuteMalformedDecision(t *testing.T) {
	ag := testAgent("a1", 100)
	f := newCycleFixture(ag, jsonResponse(`I pondered deeply and decided nothing.`))

	r, err := f.svc.Execute(context.Background(), "a1", time.Now())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if r.Status != run.StatusFailed {
		t.Fatalf("status = %s, want %s", r.Status, run.StatusFailed)
	}
	if !strings.Contains(r.Error, "decode decision") {
		t.Errorf("error = %q, want decode decision failure", r.Error)
	}
	if got := f.ledger.balances["a1"]; got != 99 {
		t.Errorf("balance = %d, want 99 (thinking was still paid for)", got)
	}
	if _, ok := f.store.scheduled["a1"]; !ok {
		t.Error("next run was not scheduled on the failure path")
	}
	if f.bus.published["hivemind.runs.failed"] != 1 {
		t.Errorf("runs.failed published %d times, want 1", f.bus.published["hivemind.runs.failed"])
	}
}

func TestExecuteProviderFailure(t *testing.T) {
	ag := testAgent("a1", 100)
	f := newCycleFixture(ag, nil)
	f.gateway.err = &provider.Error{Provider: "openai", StatusCode: 500, Body: "upstream down"}

	r, err := f.svc.Execute(context.Background(), "a1", time.Now())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if r.Status != run.StatusFailed {
		t.Fatalf("status = %s, want %s", r.Status, run.StatusFailed)
	}
	if got := f.ledger.balances["a1"]; got != 100 {
		t.Errorf("balance = %d, want 100 (no thinking happened)", got)
	}
}

func TestExecutePostCheckTaboo(t *testing.T) {
	ag := testAgent("a1", 100)
	ag.Contract.Taboos = []string{"politics"}
	f := newCycleFixture(ag, jsonResponse(
		`{"action":"create_post","arguments":{"zone":"tech","title":"Vote","content":"..."},"behavior_flags":["politics"]}`))

	r, err := f.svc.Execute(context.Background(), "a1", time.Now())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if r.Status != run.StatusBlocked {
		t.Fatalf("status = %s, want %s", r.Status, run.StatusBlocked)
	}
	if len(f.platform.executed) != 0 {
		t.Errorf("executed = %v, want none (blocked decision must not act)", f.platform.executed)
	}
	if got := f.ledger.balances["a1"]; got != 99 {
		t.Errorf("balance = %d, want 99 (thinking charged, action not)", got)
	}
}

func TestExecuteActionFailure(t *testing.T) {
	ag := testAgent("a1", 100)
	f := newCycleFixture(ag, jsonResponse(
		`{"action":"create_comment","arguments":{"parent_id":"p1","content":"agreed"}}`))
	f.platform.execErr = errors.New("post was deleted")

	r, err := f.svc.Execute(context.Background(), "a1", time.Now())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if r.Status != run.StatusFailed {
		t.Fatalf("status = %s, want %s", r.Status, run.StatusFailed)
	}
	if r.CostEnergy != 1 {
		t.Errorf("cost = %d, want 1 (failed action is not charged)", r.CostEnergy)
	}
}

func TestExecuteSettlementMatchesCostTable(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantCost int64
	}{
		{
			"post settles at the post rate",
			`{"action":"create_post","arguments":{"zone":"tech","title":"T","content":"C"}}`,
			10,
		},
		{
			"comment settles at the comment rate",
			`{"action":"create_comment","arguments":{"parent_id":"p1","content":"agreed"}}`,
			5,
		},
		{
			"no_action settles at the thinking rate",
			`{"action":"no_action","reason":"quiet"}`,
			1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ag := testAgent("a1", 100)
			f := newCycleFixture(ag, jsonResponse(tt.response))

			r, err := f.svc.Execute(context.Background(), "a1", time.Now())
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if r.CostEnergy != tt.wantCost {
				t.Errorf("cost = %d, want %d", r.CostEnergy, tt.wantCost)
			}
			if got := f.ledger.balances["a1"]; got != 100-tt.wantCost {
				t.Errorf("balance = %d, want %d", got, 100-tt.wantCost)
			}
		})
	}
}

func TestExecuteInsightEmbedFailureSkipsStore(t *testing.T) {
	ag := testAgent("a1", 100)
	f := newCycleFixture(ag, jsonResponse(
		`{"action":"create_post","arguments":{"zone":"tech","title":"T","content":"C"},"insight":{"type":"insight","content":"worth keeping"}}`))
	f.svc.vectorizer = &fakeVectorizer{err: errors.New("embeddings down")}

	r, err := f.svc.Execute(context.Background(), "a1", time.Now())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if r.Status != run.StatusCompleted {
		t.Fatalf("status = %s, want %s", r.Status, run.StatusCompleted)
	}
	// A memory without a retrieval vector can never be recalled, so none
	// must be stored.
	if len(f.memories.stored) != 0 {
		t.Errorf("stored memories = %d, want 0", len(f.memories.stored))
	}
}

func TestExecuteStepOrdering(t *testing.T) {
	ag := testAgent("a1", 100)
	f := newCycleFixture(ag, jsonResponse(
		`{"action":"create_post","arguments":{"zone":"tech","title":"T","content":"C"}}`))

	r, err := f.svc.Execute(context.Background(), "a1", time.Now())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	steps, _ := f.store.ListRunSteps(context.Background(), r.ID)
	var kinds []string
	for _, st := range steps {
		kinds = append(kinds, st.Kind)
	}
	want := []string{
		run.StepPolicyPrecheck, run.StepContext, run.StepDecision,
		run.StepPolicyPostcheck, run.StepAction, run.StepSettlement,
	}
	if len(kinds) != len(want) {
		t.Fatalf("steps = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("step[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}
}
