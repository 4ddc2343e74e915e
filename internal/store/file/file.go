// Package file implements the session store as a single JSON document on disk.
//
// The document is {"sessions": {id: record}, "last_updated": ts}. Every rewrite
// goes through a temp file and an atomic rename, and the previous version is
// retained at <path>.bak so a torn write never loses the whole store.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/store"
)

type document struct {
	Sessions    map[string]json.RawMessage `json:"sessions"`
	LastUpdated time.Time                  `json:"last_updated"`
}

// Store persists sessions as a single JSON document, mirrored in memory.
type Store struct {
	path string

	mu       sync.RWMutex
	sessions map[string]*store.Session
}

var _ store.Store = (*Store)(nil)

// Open loads the document at path (and its .bak fallback when the main copy is
// corrupt), creating parent directories as needed. A missing file starts an
// empty store.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("file store path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	s := &Store{path: path, sessions: make(map[string]*store.Session)}
	s.load()
	return s, nil
}

func (s *Store) bakPath() string { return s.path + ".bak" }

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return
	case err != nil:
		slog.Error("session store unreadable, starting empty", "path", s.path, "error", err)
		return
	}
	sessions, err := decodeDocument(data)
	if err == nil {
		s.sessions = sessions
		return
	}
	slog.Warn("session store corrupt, trying backup", "path", s.path, "error", err)

	bak, bakErr := os.ReadFile(s.bakPath())
	if bakErr == nil {
		if sessions, err := decodeDocument(bak); err == nil {
			s.sessions = sessions
			slog.Info("recovered sessions from backup", "path", s.bakPath(), "count", len(sessions))
			return
		}
	}
	slog.Error("session store and backup both unreadable, starting empty", "path", s.path)
}

// decodeDocument unmarshals the document, skipping individually corrupt
// records so one bad entry never fails the whole load.
func decodeDocument(data []byte) (map[string]*store.Session, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	out := make(map[string]*store.Session, len(doc.Sessions))
	for id, raw := range doc.Sessions {
		var sess store.Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			slog.Warn("skipping corrupt session record", "session_id", id, "error", err)
			continue
		}
		if sess.SessionID == "" {
			sess.SessionID = id
		}
		out[sess.SessionID] = &sess
	}
	return out, nil
}

// save rewrites the document. Caller must hold the write lock.
func (s *Store) save() error {
	doc := document{
		Sessions:    make(map[string]json.RawMessage, len(s.sessions)),
		LastUpdated: time.Now().UTC(),
	}
	for id, sess := range s.sessions {
		b, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		doc.Sessions[id] = b
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	// Keep the previous version around before overwriting.
	if prev, err := os.ReadFile(s.path); err == nil {
		if err := os.WriteFile(s.bakPath(), prev, 0o644); err != nil {
			return err
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) SaveSession(ctx context.Context, sess *store.Session) error {
	if sess == nil || sess.SessionID == "" {
		return errors.New("session with session_id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.sessions[sess.SessionID]
	s.sessions[sess.SessionID] = sess.Clone()
	if err := s.save(); err != nil {
		if had {
			s.sessions[sess.SessionID] = prev
		} else {
			delete(s.sessions, sess.SessionID)
		}
		return err
	}
	return nil
}

func (s *Store) SaveSessions(ctx context.Context, sessions []*store.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := maps.Clone(s.sessions)
	for _, sess := range sessions {
		if sess == nil || sess.SessionID == "" {
			s.sessions = prev
			return errors.New("session with session_id required")
		}
		s.sessions[sess.SessionID] = sess.Clone()
	}
	if err := s.save(); err != nil {
		s.sessions = prev
		return err
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*store.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return sess.Clone(), nil
}

func (s *Store) ListSessions(ctx context.Context, f store.Filter) ([]*store.Session, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 1000
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Session
	for _, sess := range s.sessions {
		if f.UserID != "" && sess.UserID != f.UserID {
			continue
		}
		if f.State != "" && sess.State != f.State {
			continue
		}
		out = append(out, sess.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) LoadAll(ctx context.Context) ([]*store.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*store.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.sessions[sessionID]
	if !ok {
		return false, nil
	}
	delete(s.sessions, sessionID)
	if err := s.save(); err != nil {
		s.sessions[sessionID] = prev
		return false, err
	}
	return true, nil
}

func (s *Store) ListExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type entry struct {
		id string
		at time.Time
	}
	var expired []entry
	for id, sess := range s.sessions {
		if sess.ExpiredBefore(cutoff) {
			expired = append(expired, entry{id: id, at: sess.UpdatedAt})
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].at.Before(expired[j].at) })
	out := make([]string, 0, len(expired))
	for _, e := range expired {
		out = append(out, e.id)
	}
	return out, nil
}

func (s *Store) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var victims []string
	for id, sess := range s.sessions {
		if sess.ExpiredBefore(cutoff) {
			victims = append(victims, id)
		}
	}
	if len(victims) == 0 {
		return 0, nil
	}
	prev := maps.Clone(s.sessions)
	for _, id := range victims {
		delete(s.sessions, id)
	}
	if err := s.save(); err != nil {
		s.sessions = prev
		return 0, err
	}
	return int64(len(victims)), nil
}

func (s *Store) CountByState(ctx context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64)
	for _, sess := range s.sessions {
		out[sess.State]++
	}
	return out, nil
}

// Close is a no-op: every mutation already rewrote the document.
func (s *Store) Close() error {
	return nil
}
