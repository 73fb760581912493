//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/swarmworks/hivemind/internal/domain/run"
)

func insertAgent(t *testing.T, energy int64) string {
	t.Helper()

	var id string
	err := testPool.QueryRow(context.Background(),
		`INSERT INTO agents (name, ownership, status, traits, contract, loop, energy, provider, model)
		 VALUES ($1, 'platform', 'active', $2, $3, $4, $5, 'openai', 'gpt-4o-mini')
		 RETURNING id`,
		"Vex-"+t.Name(),
		`{"boldness":0.7,"warmth":0.4,"curiosity":0.9}`,
		`{"role":"observer","stance":"curious"}`,
		`{"interval_seconds":600,"cooldown_seconds":15,"max_posts_per_day":5,"zones":["general"]}`,
		energy).Scan(&id)
	if err != nil {
		t.Fatalf("insert agent: %v", err)
	}
	return id
}

func triggerCycle(t *testing.T, agentID string) *http.Response {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"agent_id": agentID})
	resp, err := http.Post(testServer.URL+"/api/v1/cycles", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/v1/cycles: %v", err)
	}
	return resp
}

func TestCycleEndToEnd(t *testing.T) {
	agentID := insertAgent(t, 100)

	resp := triggerCycle(t, agentID)
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var r run.Run
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if r.Status != run.StatusCompleted {
		t.Fatalf("run status = %s (%s), want completed", r.Status, r.Error)
	}
	if r.CostEnergy != 10 {
		t.Errorf("cost = %d, want 10 (the post rate)", r.CostEnergy)
	}
	if r.ContextFingerprint == "" {
		t.Error("expected a context fingerprint")
	}
	if r.TokensIn != 120 || r.TokensOut != 40 {
		t.Errorf("tokens = %d/%d, want 120/40", r.TokensIn, r.TokensOut)
	}

	var energy int64
	if err := testPool.QueryRow(context.Background(),
		`SELECT energy FROM agents WHERE id = $1`, agentID).Scan(&energy); err != nil {
		t.Fatalf("read energy: %v", err)
	}
	if energy != 90 {
		t.Errorf("energy = %d, want 90", energy)
	}

	var posts int
	if err := testPool.QueryRow(context.Background(),
		`SELECT count(*) FROM posts WHERE author_id = $1`, agentID).Scan(&posts); err != nil {
		t.Fatalf("count posts: %v", err)
	}
	if posts != 1 {
		t.Errorf("posts = %d, want 1", posts)
	}
}

func TestCycleDuplicateTriggerSkipped(t *testing.T) {
	agentID := insertAgent(t, 100)

	first := triggerCycle(t, agentID)
	_ = first.Body.Close()
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first trigger status = %d, want 200", first.StatusCode)
	}

	// Same agent inside the same idempotency bucket maps to the same run.
	second := triggerCycle(t, agentID)
	defer func() { _ = second.Body.Close() }()
	if second.StatusCode != http.StatusOK {
		t.Fatalf("second trigger status = %d, want 200", second.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(second.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(buf.String(), "skipped") {
		t.Errorf("body = %s, want skipped marker", buf.String())
	}

	var runs int
	if err := testPool.QueryRow(context.Background(),
		`SELECT count(*) FROM runs WHERE agent_id = $1`, agentID).Scan(&runs); err != nil {
		t.Fatalf("count runs: %v", err)
	}
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
}

func TestCycleRecordsOrderedSteps(t *testing.T) {
	agentID := insertAgent(t, 100)

	resp := triggerCycle(t, agentID)
	defer func() { _ = resp.Body.Close() }()

	var r run.Run
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		t.Fatalf("decode run: %v", err)
	}

	stepsResp, err := http.Get(testServer.URL + "/api/v1/runs/" + r.ID + "/steps")
	if err != nil {
		t.Fatalf("GET steps: %v", err)
	}
	defer func() { _ = stepsResp.Body.Close() }()

	var steps []run.Step
	if err := json.NewDecoder(stepsResp.Body).Decode(&steps); err != nil {
		t.Fatalf("decode steps: %v", err)
	}

	var kinds []string
	for _, s := range steps {
		kinds = append(kinds, s.Kind)
	}
	want := []string{
		run.StepPolicyPrecheck, run.StepContext, run.StepDecision,
		run.StepPolicyPostcheck, run.StepAction, run.StepSettlement,
	}
	if len(kinds) != len(want) {
		t.Fatalf("step kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("step[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}
}
