package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/otel"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/store"
	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

// Options configures the session service.
type Options struct {
	// PersistenceEnabled gates all store traffic. Off means cache-only.
	PersistenceEnabled bool
	// AutoSave persists every mutation immediately. Off defers writes to
	// Flush (periodic tick or shutdown).
	AutoSave bool
	// Expiration is the idle window after which a session is eligible for
	// cleanup, measured from UpdatedAt regardless of state.
	Expiration time.Duration
}

// Service is the session cache in front of a store.Store. All mutations are
// serialized through its mutex; reads hand out deep copies so callers never
// alias cached state.
type Service struct {
	store store.Store
	opts  Options

	mu       sync.RWMutex
	sessions map[string]*store.Session
	dirty    map[string]struct{}
}

// NewService wires the cache to st. st may be nil when persistence is disabled.
func NewService(st store.Store, opts Options) *Service {
	if opts.Expiration <= 0 {
		opts.Expiration = 168 * time.Hour
	}
	if st == nil {
		opts.PersistenceEnabled = false
	}
	return &Service{
		store:    st,
		opts:     opts,
		sessions: make(map[string]*store.Session),
		dirty:    make(map[string]struct{}),
	}
}

// Load warms the cache from the store. Called once before serving.
func (s *Service) Load(ctx context.Context) error {
	if !s.opts.PersistenceEnabled {
		return nil
	}
	all, err := s.store.LoadAll(ctx)
	if err != nil {
		return &StorageError{Op: "load", Err: err}
	}
	s.mu.Lock()
	for _, sess := range all {
		s.sessions[sess.SessionID] = sess
	}
	n := len(s.sessions)
	s.mu.Unlock()
	slog.Info("session cache loaded", "count", n)
	return nil
}

// Create makes a new session in state created and persists it.
func (s *Service) Create(ctx context.Context, userID string, metadata map[string]any) (*store.Session, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "required"}
	}
	now := time.Now().UTC()
	sess := &store.Session{
		SessionID:   uuid.NewString(),
		UserID:      userID,
		State:       models.StateCreated,
		AgentStates: make(map[string]*store.AgentState),
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if sess.Metadata == nil {
		sess.Metadata = make(map[string]any)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.SessionID] = sess
	if err := s.persistLocked(ctx, sess, "create"); err != nil {
		return nil, err
	}
	otel.RecordSessionOperation(ctx, "create", sess.State)
	slog.Info("session created", "session_id", sess.SessionID, "user_id", userID)
	return sess.Clone(), nil
}

// Get returns a copy of the session, cache first then store. Sessions idle
// past the expiration window are evicted and reported not found.
func (s *Service) Get(ctx context.Context, sessionID string) (*store.Session, error) {
	if sessionID == "" {
		return nil, &ValidationError{Field: "session_id", Reason: "required"}
	}
	cutoff := time.Now().UTC().Add(-s.opts.Expiration)

	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	if ok && !sess.ExpiredBefore(cutoff) {
		defer s.mu.RUnlock()
		return sess.Clone(), nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok = s.sessions[sessionID]
	if ok {
		if sess.ExpiredBefore(cutoff) {
			delete(s.sessions, sessionID)
			delete(s.dirty, sessionID)
			slog.Debug("evicted expired session on read", "session_id", sessionID)
			return nil, &NotFoundError{SessionID: sessionID}
		}
		return sess.Clone(), nil
	}
	if !s.opts.PersistenceEnabled {
		return nil, &NotFoundError{SessionID: sessionID}
	}
	stored, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}
	if stored == nil || stored.ExpiredBefore(cutoff) {
		return nil, &NotFoundError{SessionID: sessionID}
	}
	s.sessions[sessionID] = stored
	return stored.Clone(), nil
}

// List returns the cached sessions for a user (all users when userID is
// empty), most recently updated first.
func (s *Service) List(ctx context.Context, userID string) ([]*store.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Session
	for _, sess := range s.sessions {
		if userID != "" && sess.UserID != userID {
			continue
		}
		out = append(out, sess.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// UpdateAgentState records an agent's result on the session.
func (s *Service) UpdateAgentState(ctx context.Context, sessionID, agentName string, state *store.AgentState) error {
	if agentName == "" {
		return &ValidationError{Field: "agent_name", Reason: "required"}
	}
	if state == nil {
		return &ValidationError{Field: "agent_state", Reason: "required"}
	}
	_, err := s.mutate(ctx, sessionID, "update_agent_state", func(sess *store.Session) error {
		if sess.AgentStates == nil {
			sess.AgentStates = make(map[string]*store.AgentState)
		}
		st := state.Clone()
		st.AgentName = agentName
		st.UpdatedAt = time.Now().UTC()
		sess.AgentStates[agentName] = st
		return nil
	})
	return err
}

// AddArtifact appends an output item to the session. Artifacts are
// append-only; nothing ever removes them.
func (s *Service) AddArtifact(ctx context.Context, sessionID, artifactType string, payload map[string]any) error {
	if artifactType == "" {
		return &ValidationError{Field: "artifact_type", Reason: "required"}
	}
	_, err := s.mutate(ctx, sessionID, "add_artifact", func(sess *store.Session) error {
		sess.Artifacts = append(sess.Artifacts, store.Artifact{
			Type:      artifactType,
			Payload:   payload,
			Timestamp: time.Now().UTC(),
		})
		return nil
	})
	return err
}

// Checkpoint snapshots the session's state and agent results under the id
// "<session_id>_<n>".
func (s *Service) Checkpoint(ctx context.Context, sessionID, label string) (*store.Checkpoint, error) {
	var cp store.Checkpoint
	_, err := s.mutate(ctx, sessionID, "checkpoint", func(sess *store.Session) error {
		cp = makeCheckpoint(sess, label)
		sess.Checkpoints = append(sess.Checkpoints, cp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

func makeCheckpoint(sess *store.Session, label string) store.Checkpoint {
	snap := store.Snapshot{State: sess.State}
	if len(sess.AgentStates) > 0 {
		snap.AgentStates = make(map[string]*store.AgentState, len(sess.AgentStates))
		for k, v := range sess.AgentStates {
			snap.AgentStates[k] = v.Clone()
		}
	}
	return store.Checkpoint{
		CheckpointID: fmt.Sprintf("%s_%d", sess.SessionID, len(sess.Checkpoints)+1),
		Label:        label,
		Snapshot:     snap,
		Timestamp:    time.Now().UTC(),
	}
}

// Pause moves a created or running session to paused and records a checkpoint.
func (s *Service) Pause(ctx context.Context, sessionID string) (*store.Session, error) {
	return s.mutate(ctx, sessionID, "pause", func(sess *store.Session) error {
		if sess.State != models.StateCreated && sess.State != models.StateRunning {
			return &StateError{SessionID: sessionID, State: sess.State, Op: "pause"}
		}
		sess.State = models.StatePaused
		sess.Checkpoints = append(sess.Checkpoints, makeCheckpoint(sess, "pause"))
		return nil
	})
}

// Resume moves a paused session back to running. Terminal sessions
// (completed, expired, failed) can never be resumed.
func (s *Service) Resume(ctx context.Context, sessionID string) (*store.Session, error) {
	return s.mutate(ctx, sessionID, "resume", func(sess *store.Session) error {
		if sess.State != models.StatePaused {
			return &StateError{SessionID: sessionID, State: sess.State, Op: "resume"}
		}
		sess.State = models.StateRunning
		return nil
	})
}

// MarkRunning moves a non-terminal session to running. Used by the workflow
// when a run starts or picks a paused session back up.
func (s *Service) MarkRunning(ctx context.Context, sessionID string) (*store.Session, error) {
	return s.mutate(ctx, sessionID, "run", func(sess *store.Session) error {
		if models.TerminalState(sess.State) {
			return &StateError{SessionID: sessionID, State: sess.State, Op: "run"}
		}
		sess.State = models.StateRunning
		return nil
	})
}

// Complete finishes the session and stamps CompletedAt.
func (s *Service) Complete(ctx context.Context, sessionID string) (*store.Session, error) {
	return s.mutate(ctx, sessionID, "complete", func(sess *store.Session) error {
		if models.TerminalState(sess.State) {
			return &StateError{SessionID: sessionID, State: sess.State, Op: "complete"}
		}
		now := time.Now().UTC()
		sess.State = models.StateCompleted
		sess.CompletedAt = &now
		return nil
	})
}

// Fail marks the session failed, recording the reason in metadata.
func (s *Service) Fail(ctx context.Context, sessionID, reason string) (*store.Session, error) {
	return s.mutate(ctx, sessionID, "fail", func(sess *store.Session) error {
		if models.TerminalState(sess.State) {
			return &StateError{SessionID: sessionID, State: sess.State, Op: "fail"}
		}
		sess.State = models.StateFailed
		if reason != "" {
			if sess.Metadata == nil {
				sess.Metadata = make(map[string]any)
			}
			sess.Metadata["failure_reason"] = reason
		}
		return nil
	})
}

// SetMetadata sets one metadata key on the session.
func (s *Service) SetMetadata(ctx context.Context, sessionID, key string, value any) error {
	if key == "" {
		return &ValidationError{Field: "metadata_key", Reason: "required"}
	}
	_, err := s.mutate(ctx, sessionID, "set_metadata", func(sess *store.Session) error {
		if sess.Metadata == nil {
			sess.Metadata = make(map[string]any)
		}
		sess.Metadata[key] = value
		return nil
	})
	return err
}

// Delete removes the session from cache and store. Deleting an unknown id is
// a no-op, never an error.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return &ValidationError{Field: "session_id", Reason: "required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	delete(s.dirty, sessionID)
	if s.opts.PersistenceEnabled {
		if _, err := s.store.DeleteSession(ctx, sessionID); err != nil {
			return &StorageError{Op: "delete", Err: err}
		}
	}
	otel.RecordSessionOperation(ctx, "delete", "")
	slog.Info("session deleted", "session_id", sessionID)
	return nil
}

// CleanupExpired removes every session idle past the expiration window and
// returns how many were deleted.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.opts.Expiration)

	s.mu.Lock()
	var evicted int64
	for id, sess := range s.sessions {
		if sess.ExpiredBefore(cutoff) {
			delete(s.sessions, id)
			delete(s.dirty, id)
			evicted++
		}
	}
	s.mu.Unlock()

	n := evicted
	if s.opts.PersistenceEnabled {
		deleted, err := s.store.DeleteExpired(ctx, cutoff)
		if err != nil {
			return evicted, &StorageError{Op: "cleanup", Err: err}
		}
		if deleted > n {
			n = deleted
		}
	}
	if n > 0 {
		otel.RecordSessionOperation(ctx, "cleanup", models.StateExpired)
		slog.Info("expired sessions cleaned up", "count", n)
	}
	return n, nil
}

// Stats reports cache and storage counts.
func (s *Service) Stats(ctx context.Context) (*models.SessionStats, error) {
	s.mu.RLock()
	cached := len(s.sessions)
	s.mu.RUnlock()

	stats := &models.SessionStats{Cached: cached}
	if s.opts.PersistenceEnabled {
		byState, err := s.store.CountByState(ctx)
		if err != nil {
			return nil, &StorageError{Op: "stats", Err: err}
		}
		stats.ByState = byState
		for _, n := range byState {
			stats.Stored += n
		}
		return stats, nil
	}
	stats.ByState = make(map[string]int64)
	s.mu.RLock()
	for _, sess := range s.sessions {
		stats.ByState[sess.State]++
	}
	s.mu.RUnlock()
	stats.Stored = int64(cached)
	return stats, nil
}

// CountByState tallies cached sessions per state. Used by the metrics gauge.
func (s *Service) CountByState() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64)
	for _, sess := range s.sessions {
		out[sess.State]++
	}
	return out
}

// Flush persists every dirty session in one batch.
func (s *Service) Flush(ctx context.Context) error {
	if !s.opts.PersistenceEnabled {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.dirty) == 0 {
		return nil
	}
	batch := make([]*store.Session, 0, len(s.dirty))
	for id := range s.dirty {
		if sess, ok := s.sessions[id]; ok {
			batch = append(batch, sess)
		}
	}
	if err := s.store.SaveSessions(ctx, batch); err != nil {
		return &StorageError{Op: "flush", Err: err}
	}
	s.dirty = make(map[string]struct{})
	slog.Info("session cache flushed", "count", len(batch))
	return nil
}

// Close flushes dirty sessions and closes the underlying store.
func (s *Service) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	if s.store != nil {
		if cerr := s.store.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// mutate applies fn to the session under the write lock, bumps UpdatedAt, and
// persists. The mutation stays cached (and dirty) even when the save fails.
func (s *Service) mutate(ctx context.Context, sessionID, op string, fn func(*store.Session) error) (*store.Session, error) {
	if sessionID == "" {
		return nil, &ValidationError{Field: "session_id", Reason: "required"}
	}
	cutoff := time.Now().UTC().Add(-s.opts.Expiration)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok && s.opts.PersistenceEnabled {
		stored, err := s.store.GetSession(ctx, sessionID)
		if err != nil {
			return nil, &StorageError{Op: op, Err: err}
		}
		if stored != nil {
			s.sessions[sessionID] = stored
			sess, ok = stored, true
		}
	}
	if !ok {
		return nil, &NotFoundError{SessionID: sessionID}
	}
	if sess.ExpiredBefore(cutoff) {
		delete(s.sessions, sessionID)
		delete(s.dirty, sessionID)
		return nil, &NotFoundError{SessionID: sessionID}
	}

	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.Touch()
	if err := s.persistLocked(ctx, sess, op); err != nil {
		return nil, err
	}
	otel.RecordSessionOperation(ctx, op, sess.State)
	return sess.Clone(), nil
}

// persistLocked saves one session. Caller holds the write lock. A failed or
// deferred save leaves the session in the dirty set for the next flush.
func (s *Service) persistLocked(ctx context.Context, sess *store.Session, op string) error {
	if !s.opts.PersistenceEnabled {
		return nil
	}
	if !s.opts.AutoSave {
		s.dirty[sess.SessionID] = struct{}{}
		return nil
	}
	if err := s.store.SaveSession(ctx, sess); err != nil {
		s.dirty[sess.SessionID] = struct{}{}
		return &StorageError{Op: op, Err: err}
	}
	delete(s.dirty, sess.SessionID)
	return nil
}
