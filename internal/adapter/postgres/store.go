package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swarmworks/hivemind/internal/domain"
	"github.com/swarmworks/hivemind/internal/domain/agent"
	"github.com/swarmworks/hivemind/internal/domain/policy"
	"github.com/swarmworks/hivemind/internal/domain/run"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// agentColumns gates the per-day counters on counters_day so a stale row
// reads as zero after midnight without an explicit reset sweep.
const agentColumns = `
	id, name, ownership, status, traits, contract, loop, energy,
	provider, model, credential_sealed, knowledge_base_id,
	CASE WHEN counters_day = CURRENT_DATE THEN runs_today ELSE 0 END,
	CASE WHEN counters_day = CURRENT_DATE THEN posts_today ELSE 0 END,
	CASE WHEN counters_day = CURRENT_DATE THEN comments_today ELSE 0 END,
	last_action_at, last_post_at, last_comment_at, next_run_at,
	created_at, updated_at`

// --- Agents ---

func (s *Store) GetAgent(ctx context.Context, id string) (*agent.Agent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)

	a, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get agent %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	return &a, nil
}

func (s *Store) ListAgents(ctx context.Context) ([]agent.Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()
	return collectAgents(rows)
}

func (s *Store) ListEligibleAgents(ctx context.Context, now time.Time) ([]agent.Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents
		 WHERE status = 'active' AND energy > 0
		   AND (ownership = 'platform' OR next_run_at IS NULL OR next_run_at <= $1)
		 ORDER BY created_at ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("list eligible agents: %w", err)
	}
	defer rows.Close()
	return collectAgents(rows)
}

func (s *Store) ListZeroBalanceAgents(ctx context.Context) ([]agent.Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents
		 WHERE status = 'active' AND energy <= 0
		 ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list zero-balance agents: %w", err)
	}
	defer rows.Close()
	return collectAgents(rows)
}

func (s *Store) ListReproductionCandidates(ctx context.Context, threshold int64) ([]agent.Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents
		 WHERE status = 'active' AND ownership = 'platform' AND energy >= $1
		 ORDER BY energy DESC`, threshold)
	if err != nil {
		return nil, fmt.Errorf("list reproduction candidates: %w", err)
	}
	defer rows.Close()
	return collectAgents(rows)
}

func (s *Store) RecordAction(ctx context.Context, agentID string, kind policy.Action, at time.Time) error {
	var q string
	switch kind {
	case policy.ActionSystemCheck:
		q = `UPDATE agents SET
			runs_today = CASE WHEN counters_day = CURRENT_DATE THEN runs_today ELSE 0 END + 1,
			posts_today = CASE WHEN counters_day = CURRENT_DATE THEN posts_today ELSE 0 END,
			comments_today = CASE WHEN counters_day = CURRENT_DATE THEN comments_today ELSE 0 END,
			counters_day = CURRENT_DATE, updated_at = now()
		 WHERE id = $1`
	case policy.ActionCreatePost:
		q = `UPDATE agents SET
			posts_today = CASE WHEN counters_day = CURRENT_DATE THEN posts_today ELSE 0 END + 1,
			runs_today = CASE WHEN counters_day = CURRENT_DATE THEN runs_today ELSE 0 END,
			comments_today = CASE WHEN counters_day = CURRENT_DATE THEN comments_today ELSE 0 END,
			counters_day = CURRENT_DATE, last_post_at = $2, last_action_at = $2, updated_at = now()
		 WHERE id = $1`
	case policy.ActionCreateComment:
		q = `UPDATE agents SET
			comments_today = CASE WHEN counters_day = CURRENT_DATE THEN comments_today ELSE 0 END + 1,
			runs_today = CASE WHEN counters_day = CURRENT_DATE THEN runs_today ELSE 0 END,
			posts_today = CASE WHEN counters_day = CURRENT_DATE THEN posts_today ELSE 0 END,
			counters_day = CURRENT_DATE, last_comment_at = $2, last_action_at = $2, updated_at = now()
		 WHERE id = $1`
	default:
		return fmt.Errorf("record action: unknown kind %q", kind)
	}

	var tag pgconn.CommandTag
	var err error
	if kind == policy.ActionSystemCheck {
		tag, err = s.pool.Exec(ctx, q, agentID)
	} else {
		tag, err = s.pool.Exec(ctx, q, agentID, at)
	}
	if err != nil {
		return fmt.Errorf("record action %s for agent %s: %w", kind, agentID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record action %s for agent %s: %w", kind, agentID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) ScheduleNextRun(ctx context.Context, agentID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE agents SET next_run_at = $2, updated_at = now() WHERE id = $1`, agentID, at)
	if err != nil {
		return fmt.Errorf("schedule next run for agent %s: %w", agentID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("schedule next run for agent %s: %w", agentID, domain.ErrNotFound)
	}
	return nil
}

// --- Runs ---

func (s *Store) CreateRun(ctx context.Context, r *run.Run) error {
	snapshotJSON, err := json.Marshal(r.PolicySnapshot)
	if err != nil {
		return fmt.Errorf("marshal policy snapshot: %w", err)
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO runs (agent_id, idempotency_key, status, policy_snapshot)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (idempotency_key) DO NOTHING
		 RETURNING id, started_at`,
		r.AgentID, r.IdempotencyKey, string(r.Status), snapshotJSON)

	if err := row.Scan(&r.ID, &r.StartedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("create run %s: %w", r.IdempotencyKey, domain.ErrDuplicateRun)
		}
		return fmt.Errorf("create run %s: %w", r.IdempotencyKey, err)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id string) (*run.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, agent_id, idempotency_key, status, policy_snapshot, context_fingerprint,
		        tokens_in, tokens_out, cost_energy, error, started_at, completed_at
		 FROM runs WHERE id = $1`, id)

	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get run %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &r, nil
}

func (s *Store) ListRunsByAgent(ctx context.Context, agentID string, limit int) ([]run.Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, agent_id, idempotency_key, status, policy_snapshot, context_fingerprint,
		        tokens_in, tokens_out, cost_energy, error, started_at, completed_at
		 FROM runs WHERE agent_id = $1 ORDER BY started_at DESC LIMIT $2`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs by agent: %w", err)
	}
	defer rows.Close()

	var runs []run.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Store) SetRunContext(ctx context.Context, runID, fingerprint string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET context_fingerprint = $2 WHERE id = $1`, runID, fingerprint)
	if err != nil {
		return fmt.Errorf("set run context %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set run context %s: %w", runID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) CompleteRun(ctx context.Context, runID string, status run.Status, errMsg string, tokensIn, tokensOut, cost int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $2, error = $3, tokens_in = $4, tokens_out = $5,
		        cost_energy = $6, completed_at = now()
		 WHERE id = $1`,
		runID, string(status), errMsg, tokensIn, tokensOut, cost)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete run %s: %w", runID, domain.ErrNotFound)
	}
	return nil
}

// --- Run steps ---

func (s *Store) AppendRunStep(ctx context.Context, runID, kind string, payload []byte) error {
	if len(payload) == 0 {
		payload = []byte("null")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_steps (run_id, idx, kind, payload)
		 SELECT $1, COALESCE(MAX(idx) + 1, 0), $2, $3 FROM run_steps WHERE run_id = $1`,
		runID, kind, payload)
	if err != nil {
		return fmt.Errorf("append run step %s/%s: %w", runID, kind, err)
	}
	return nil
}

func (s *Store) ListRunSteps(ctx context.Context, runID string) ([]run.Step, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, idx, kind, payload, created_at
		 FROM run_steps WHERE run_id = $1 ORDER BY idx ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run steps: %w", err)
	}
	defer rows.Close()

	var steps []run.Step
	for rows.Next() {
		var st run.Step
		if err := rows.Scan(&st.RunID, &st.Index, &st.Kind, &st.Payload, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run step: %w", err)
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

// --- Scanners ---

type scannable interface {
	Scan(dest ...any) error
}

func scanAgent(row scannable) (agent.Agent, error) {
	var a agent.Agent
	var traitsJSON, contractJSON, loopJSON []byte
	err := row.Scan(
		&a.ID, &a.Name, &a.Ownership, &a.Status, &traitsJSON, &contractJSON, &loopJSON,
		&a.Energy, &a.Provider, &a.Model, &a.CredentialSealed, &a.KnowledgeBaseID,
		&a.RunsToday, &a.PostsToday, &a.CommentsToday,
		&a.LastActionAt, &a.LastPostAt, &a.LastCommentAt, &a.NextRunAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return a, err
	}
	if err := json.Unmarshal(traitsJSON, &a.Traits); err != nil {
		return a, fmt.Errorf("unmarshal agent traits: %w", err)
	}
	if err := json.Unmarshal(contractJSON, &a.Contract); err != nil {
		return a, fmt.Errorf("unmarshal agent contract: %w", err)
	}
	if err := json.Unmarshal(loopJSON, &a.Loop); err != nil {
		return a, fmt.Errorf("unmarshal agent loop: %w", err)
	}
	return a, nil
}

func collectAgents(rows pgx.Rows) ([]agent.Agent, error) {
	var agents []agent.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func scanRun(row scannable) (run.Run, error) {
	var r run.Run
	var snapshotJSON []byte
	err := row.Scan(
		&r.ID, &r.AgentID, &r.IdempotencyKey, &r.Status, &snapshotJSON, &r.ContextFingerprint,
		&r.TokensIn, &r.TokensOut, &r.CostEnergy, &r.Error, &r.StartedAt, &r.CompletedAt,
	)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(snapshotJSON, &r.PolicySnapshot); err != nil {
		return r, fmt.Errorf("unmarshal policy snapshot: %w", err)
	}
	return r, nil
}
