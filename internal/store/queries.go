package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

func (s *sqliteStore) SaveSession(ctx context.Context, sess *Session) error {
	if sess == nil || sess.SessionID == "" {
		return errors.New("session with session_id required")
	}
	args, err := upsertArgs(sess)
	if err != nil {
		return err
	}
	_, err = s.stmtUpsertSession.ExecContext(ctx, args...)
	return err
}

// SaveSessions writes all sessions in one transaction (bulk flush on shutdown
// and on the periodic flush tick).
func (s *sqliteStore) SaveSessions(ctx context.Context, sessions []*Session) error {
	if len(sessions) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt := tx.StmtContext(ctx, s.stmtUpsertSession)
	for _, sess := range sessions {
		if sess == nil || sess.SessionID == "" {
			return errors.New("session with session_id required")
		}
		args, err := upsertArgs(sess)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("save session %s: %w", sess.SessionID, err)
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	row := s.stmtGetSession.QueryRowContext(ctx, sessionID)
	sess, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

func (s *sqliteStore) ListSessions(ctx context.Context, f Filter) ([]*Session, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 1000
	}
	if f.UserID != "" && f.State == "" {
		rows, err := s.stmtListByUser.QueryContext(ctx, f.UserID, limit)
		if err != nil {
			return nil, err
		}
		return collectSessions(rows)
	}
	q := `SELECT session_id, user_id, state, agent_states, artifacts, checkpoints, metadata, created_at, updated_at, completed_at FROM sessions`
	var (
		conds []string
		args  []any
	)
	if f.UserID != "" {
		conds = append(conds, `user_id = ?`)
		args = append(args, f.UserID)
	}
	if f.State != "" {
		conds = append(conds, `state = ?`)
		args = append(args, f.State)
	}
	for i, c := range conds {
		if i == 0 {
			q += ` WHERE ` + c
		} else {
			q += ` AND ` + c
		}
	}
	q += ` ORDER BY updated_at DESC LIMIT ?`
	args = append(args, limit)
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// LoadAll returns every stored session, oldest created first. Used to warm the
// in-memory cache at startup. Corrupt records are skipped and logged; a single
// bad row never fails the whole load.
func (s *sqliteStore) LoadAll(ctx context.Context) ([]*Session, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT session_id, user_id, state, agent_states, artifacts, checkpoints, metadata, created_at, updated_at, completed_at FROM sessions ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*Session
	for rows.Next() {
		sess, err := scanSessionRow(rows)
		if err != nil {
			slog.Warn("skipping corrupt session record", "error", err)
			continue
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// DeleteSession removes a session. Idempotent: returns false when the id was
// not present.
func (s *sqliteStore) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.stmtDeleteSession.ExecContext(ctx, sessionID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *sqliteStore) ListExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.stmtListExpired.QueryContext(ctx, cutoff.UTC().Unix())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
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

func (s *sqliteStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff.UTC().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqliteStore) CountByState(ctx context.Context) (map[string]int64, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT state, COUNT(*) FROM sessions GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
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

func upsertArgs(sess *Session) ([]any, error) {
	agentStates, err := marshalColumn(sess.AgentStates, "{}")
	if err != nil {
		return nil, err
	}
	artifacts, err := marshalColumn(sess.Artifacts, "[]")
	if err != nil {
		return nil, err
	}
	checkpoints, err := marshalColumn(sess.Checkpoints, "[]")
	if err != nil {
		return nil, err
	}
	metadata, err := marshalColumn(sess.Metadata, "{}")
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

func marshalColumn(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	s := string(b)
	if s == "null" {
		return empty, nil
	}
	return s, nil
}

// scanSessionRow scans the current row (columns in order: session_id, user_id,
// state, agent_states, artifacts, checkpoints, metadata, created_at,
// updated_at, completed_at).
func scanSessionRow(row interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		sess        Session
		agentStates string
		artifacts   string
		checkpoints string
		metadata    string
		createdAt   int64
		updatedAt   int64
		completedAt sql.NullInt64
	)
	err := row.Scan(&sess.SessionID, &sess.UserID, &sess.State,
		&agentStates, &artifacts, &checkpoints, &metadata,
		&createdAt, &updatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(agentStates), &sess.AgentStates); err != nil {
		return nil, fmt.Errorf("session %s: agent_states: %w", sess.SessionID, err)
	}
	if err := json.Unmarshal([]byte(artifacts), &sess.Artifacts); err != nil {
		return nil, fmt.Errorf("session %s: artifacts: %w", sess.SessionID, err)
	}
	if err := json.Unmarshal([]byte(checkpoints), &sess.Checkpoints); err != nil {
		return nil, fmt.Errorf("session %s: checkpoints: %w", sess.SessionID, err)
	}
	if err := json.Unmarshal([]byte(metadata), &sess.Metadata); err != nil {
		return nil, fmt.Errorf("session %s: metadata: %w", sess.SessionID, err)
	}
	sess.CreatedAt = time.Unix(createdAt, 0).UTC()
	sess.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		sess.CompletedAt = &t
	}
	return &sess, nil
}

func collectSessions(rows *sql.Rows) ([]*Session, error) {
	defer func() { _ = rows.Close() }()
	var out []*Session
	for rows.Next() {
		sess, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}
