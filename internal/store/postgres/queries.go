package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/store"
)

const sessionColumns = `session_id, user_id, state, agent_states, artifacts, checkpoints, metadata, created_at, updated_at, completed_at`

const upsertSQL = `INSERT INTO sessions(session_id, user_id, state, agent_states, artifacts, checkpoints, metadata, created_at, updated_at, completed_at)
VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (session_id) DO UPDATE SET
  user_id=EXCLUDED.user_id,
  state=EXCLUDED.state,
  agent_states=EXCLUDED.agent_states,
  artifacts=EXCLUDED.artifacts,
  checkpoints=EXCLUDED.checkpoints,
  metadata=EXCLUDED.metadata,
  updated_at=EXCLUDED.updated_at,
  completed_at=EXCLUDED.completed_at`

func (s *Store) SaveSession(ctx context.Context, sess *store.Session) error {
	if sess == nil || sess.SessionID == "" {
		return errors.New("session with session_id required")
	}
	args, err := upsertArgs(sess)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, upsertSQL, args...)
	return err
}

func (s *Store) SaveSessions(ctx context.Context, sessions []*store.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, sess := range sessions {
		if sess == nil || sess.SessionID == "" {
			return errors.New("session with session_id required")
		}
		args, err := upsertArgs(sess)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, upsertSQL, args...); err != nil {
			return fmt.Errorf("save session %s: %w", sess.SessionID, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*store.Session, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_id = $1`, sessionID)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

func (s *Store) ListSessions(ctx context.Context, f store.Filter) ([]*store.Session, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 1000
	}
	q := `SELECT ` + sessionColumns + ` FROM sessions`
	var (
		conds []string
		args  []any
	)
	if f.UserID != "" {
		args = append(args, f.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.State != "" {
		args = append(args, f.State)
		conds = append(conds, fmt.Sprintf("state = $%d", len(args)))
	}
	for i, c := range conds {
		if i == 0 {
			q += ` WHERE ` + c
		} else {
			q += ` AND ` + c
		}
	}
	args = append(args, limit)
	q += fmt.Sprintf(` ORDER BY updated_at DESC LIMIT $%d`, len(args))

	rows, err := s.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*store.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) LoadAll(ctx context.Context) ([]*store.Session, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*store.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			slog.Warn("skipping corrupt session record", "error", err)
			continue
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `SELECT session_id FROM sessions WHERE updated_at < $1 ORDER BY updated_at ASC`, cutoff.UTC().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM sessions WHERE updated_at < $1`, cutoff.UTC().Unix())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) CountByState(ctx context.Context) (map[string]int64, error) {
	rows, err := s.Pool.Query(ctx, `SELECT state, COUNT(*) FROM sessions GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var (
			state string
			n     int64
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		out[state] = n
	}
	return out, rows.Err()
}

func upsertArgs(sess *store.Session) ([]any, error) {
	agentStates, err := json.Marshal(orEmpty(sess.AgentStates))
	if err != nil {
		return nil, err
	}
	artifacts, err := json.Marshal(orEmptySlice(sess.Artifacts))
	if err != nil {
		return nil, err
	}
	checkpoints, err := json.Marshal(orEmptySlice(sess.Checkpoints))
	if err != nil {
		return nil, err
	}
	metadata, err := json.Marshal(orEmptyMap(sess.Metadata))
	if err != nil {
		return nil, err
	}
	var completedAt any
	if sess.CompletedAt != nil {
		completedAt = sess.CompletedAt.UTC().Unix()
	}
	return []any{
		sess.SessionID, sess.UserID, sess.State,
		agentStates, artifacts, checkpoints, metadata,
		sess.CreatedAt.UTC().Unix(), sess.UpdatedAt.UTC().Unix(), completedAt,
	}, nil
}

func orEmpty(m map[string]*store.AgentState) map[string]*store.AgentState {
	if m == nil {
		return map[string]*store.AgentState{}
	}
	return m
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func scanSession(row pgx.Row) (*store.Session, error) {
	var (
		sess        store.Session
		agentStates []byte
		artifacts   []byte
		checkpoints []byte
		metadata    []byte
		createdAt   int64
		updatedAt   int64
		completedAt *int64
	)
	err := row.Scan(&sess.SessionID, &sess.UserID, &sess.State,
		&agentStates, &artifacts, &checkpoints, &metadata,
		&createdAt, &updatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(agentStates, &sess.AgentStates); err != nil {
		return nil, fmt.Errorf("session %s: agent_states: %w", sess.SessionID, err)
	}
	if err := json.Unmarshal(artifacts, &sess.Artifacts); err != nil {
		return nil, fmt.Errorf("session %s: artifacts: %w", sess.SessionID, err)
	}
	if err := json.Unmarshal(checkpoints, &sess.Checkpoints); err != nil {
		return nil, fmt.Errorf("session %s: checkpoints: %w", sess.SessionID, err)
	}
	if err := json.Unmarshal(metadata, &sess.Metadata); err != nil {
		return nil, fmt.Errorf("session %s: metadata: %w", sess.SessionID, err)
	}
	sess.CreatedAt = time.Unix(createdAt, 0).UTC()
	sess.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if completedAt != nil {
		t := time.Unix(*completedAt, 0).UTC()
		sess.CompletedAt = &t
	}
	return &sess, nil
}
