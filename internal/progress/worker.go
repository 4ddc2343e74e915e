// Package progress reacts to session lifecycle events: when a session
// completes, the worker appends a journal entry for the user and notifies
// the configured capabilities.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/identity"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/memory"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/store"
	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

// Stream delivers published session events to subscribers.
type Stream interface {
	Subscribe() chan []byte
	Unsubscribe(chan []byte)
}

// Notifier fans a message out to the configured integrations.
type Notifier interface {
	NotifyAll(ctx context.Context, message string) error
}

// SessionSource looks sessions up by id.
type SessionSource interface {
	Get(ctx context.Context, sessionID string) (*store.Session, error)
}

// Worker consumes session events and records completed sessions.
type Worker struct {
	Home     string
	Sessions SessionSource
	Stream   Stream
	Notifier Notifier // optional
}

type event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	State     string `json:"state"`
}

// Run subscribes to the stream and processes events until ctx is done or
// the stream closes.
func (w *Worker) Run(ctx context.Context) {
	ch := w.Stream.Subscribe()
	defer w.Stream.Unsubscribe(ch)
	slog.Info("progress worker started")
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			w.handle(ctx, data)
		}
	}
}

func (w *Worker) handle(ctx context.Context, data []byte) {
	var ev event
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	if ev.Type != "session_update" || ev.State != models.StateCompleted {
		return
	}
	if err := w.record(ctx, ev.SessionID, ev.UserID); err != nil {
		slog.Error("failed to record completed session", "session_id", ev.SessionID, "error", err)
	}
}

func (w *Worker) record(ctx context.Context, sessionID, userID string) error {
	sess, err := w.Sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	attempted, solved := tally(sess)

	company, _ := sess.Metadata["company_name"].(string)
	entry := memory.SessionEntry{
		SessionID: sessionID,
		Company:   company,
		Role:      identity.Directory{Home: w.Home}.TargetRole(userID),
		Outcome:   "completed",
		Attempted: attempted,
		Solved:    solved,
		CreatedAt: time.Now().UTC(),
	}
	if sess.CompletedAt != nil {
		entry.CreatedAt = *sess.CompletedAt
	}
	journal := &memory.Journal{Home: w.Home, UserID: userID}
	if err := journal.Append(ctx, entry); err != nil {
		return err
	}

	if w.Notifier != nil {
		if err := w.Notifier.NotifyAll(ctx, completionMessage(company, attempted, solved)); err != nil {
			slog.Warn("completion notification failed", "session_id", sessionID, "error", err)
		}
	}
	slog.Info("completed session recorded", "session_id", sessionID, "user_id", userID,
		"questions_attempted", attempted, "questions_solved", solved)
	return nil
}

func completionMessage(company string, attempted, solved int) string {
	msg := "Interview session completed"
	if company != "" {
		msg = fmt.Sprintf("Interview session for %s completed", company)
	}
	if attempted > 0 {
		msg = fmt.Sprintf("%s: %d/%d questions solved", msg, solved, attempted)
	}
	return msg
}

// tally counts practice outcomes from the session's artifacts. Code
// evaluations are authoritative when present; otherwise the question sets
// served count as attempted.
func tally(sess *store.Session) (attempted, solved int) {
	for _, a := range sess.Artifacts {
		if a.Type != models.ArtifactEvaluation {
			continue
		}
		attempted++
		eval, _ := a.Payload["evaluation"].(map[string]any)
		if status, _ := eval["status"].(string); status == models.EvalStatusSuccess {
			solved++
		}
	}
	if attempted > 0 {
		return attempted, solved
	}
	for _, a := range sess.Artifacts {
		if a.Type != models.ArtifactQuestions {
			continue
		}
		switch qs := a.Payload["questions"].(type) {
		case []any:
			attempted += len(qs)
		case []models.Question:
			attempted += len(qs)
		}
	}
	return attempted, solved
}
