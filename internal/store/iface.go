package store

import (
	"context"
	"time"
)

// Store is the persistence interface for interview sessions.
// Implementations: the SQLite store in this package, *file.Store (single JSON
// document), and *postgres.Store (PostgreSQL).
type Store interface {
	// Sessions
	SaveSession(ctx context.Context, s *Session) error
	SaveSessions(ctx context.Context, sessions []*Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	ListSessions(ctx context.Context, f Filter) ([]*Session, error)
	LoadAll(ctx context.Context) ([]*Session, error)
	DeleteSession(ctx context.Context, sessionID string) (bool, error)

	// Expiration
	ListExpired(ctx context.Context, cutoff time.Time) ([]string, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)

	// Stats
	CountByState(ctx context.Context) (map[string]int64, error)

	// Lifecycle
	Close() error
}

// Filter narrows ListSessions results. Zero values mean "any".
type Filter struct {
	UserID string
	State  string
	Limit  int
}
