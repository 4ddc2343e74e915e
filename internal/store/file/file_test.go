package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/store"
)

func testSession(id, userID string) *store.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &store.Session{
		SessionID: id,
		UserID:    userID,
		State:     "created",
		AgentStates: map[string]*store.AgentState{
			"research": {AgentName: "research", Success: true, Output: map[string]any{"tech_stack": []any{"go"}}, UpdatedAt: now},
		},
		Metadata:  map[string]any{"company_name": "Acme"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sessions.json")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	if err := st.SaveSession(ctx, testSession("s1", "u1")); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("document not written: %v", err)
	}
	// No dangling temp file after a successful write.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	// A fresh instance reading the same path sees the session.
	st2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := st2.GetSession(ctx, "s1")
	if err != nil || got == nil {
		t.Fatalf("GetSession after reopen: got %+v, err %v", got, err)
	}
	if got.UserID != "u1" || got.State != "created" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if got.AgentStates["research"] == nil || !got.AgentStates["research"].Success {
		t.Fatalf("agent_states did not round-trip: %+v", got.AgentStates)
	}
	if got.Metadata["company_name"] != "Acme" {
		t.Fatalf("metadata did not round-trip: %+v", got.Metadata)
	}
}

func TestGetSession_missing(t *testing.T) {
	t.Parallel()

	st, err := Open(filepath.Join(t.TempDir(), "sessions.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := st.GetSession(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("GetSession missing: got %+v, err %v", got, err)
	}
}

func TestGetSession_returnsCopy(t *testing.T) {
	t.Parallel()

	st, err := Open(filepath.Join(t.TempDir(), "sessions.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if err := st.SaveSession(ctx, testSession("s1", "u1")); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	a, _ := st.GetSession(ctx, "s1")
	a.State = "mutated"
	a.Metadata["company_name"] = "mutated"
	b, _ := st.GetSession(ctx, "s1")
	if b.State != "created" || b.Metadata["company_name"] != "Acme" {
		t.Fatalf("caller mutation leaked into store: %+v", b)
	}
}

func TestBackupRecovery(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sessions.json")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if err := st.SaveSession(ctx, testSession("s1", "u1")); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	// Second write creates the .bak with the first document version.
	if err := st.SaveSession(ctx, testSession("s2", "u1")); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if _, err := os.Stat(path + ".bak"); err != nil {
		t.Fatalf("backup not written: %v", err)
	}

	// Corrupt the main document; a fresh open recovers from the backup.
	if err := os.WriteFile(path, []byte("{truncated"), 0o644); err != nil {
		t.Fatal(err)
	}
	st2, err := Open(path)
	if err != nil {
		t.Fatalf("Open after corruption: %v", err)
	}
	got, err := st2.GetSession(ctx, "s1")
	if err != nil || got == nil {
		t.Fatalf("expected s1 recovered from backup, got %+v err %v", got, err)
	}
}

func TestOpen_bothCorruptStartsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sessions.json")
	if err := os.WriteFile(path, []byte("{bad"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path+".bak", []byte("also bad"), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	all, err := st.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty store, got %d sessions", len(all))
	}
}

func TestOpen_skipsCorruptRecords(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sessions.json")
	doc := map[string]any{
		"sessions": map[string]any{
			"good": testSession("good", "u1"),
			"bad":  map[string]any{"session_id": "bad", "state": 12345, "agent_states": "nope"},
		},
		"last_updated": time.Now().UTC(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	all, err := st.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 1 || all[0].SessionID != "good" {
		t.Fatalf("expected only the good record, got %+v", all)
	}
}

func TestDelete_idempotent(t *testing.T) {
	t.Parallel()

	st, err := Open(filepath.Join(t.TempDir(), "sessions.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if err := st.SaveSession(ctx, testSession("s1", "u1")); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	deleted, err := st.DeleteSession(ctx, "s1")
	if err != nil || !deleted {
		t.Fatalf("DeleteSession: deleted=%v err=%v", deleted, err)
	}
	deleted, err = st.DeleteSession(ctx, "s1")
	if err != nil || deleted {
		t.Fatalf("DeleteSession second call: deleted=%v err=%v", deleted, err)
	}
}

func TestExpiration(t *testing.T) {
	t.Parallel()

	st, err := Open(filepath.Join(t.TempDir(), "sessions.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	cutoff := time.Now().UTC().Truncate(time.Second)

	old := testSession("old", "u1")
	old.UpdatedAt = cutoff.Add(-time.Hour)
	fresh := testSession("fresh", "u1")
	fresh.UpdatedAt = cutoff.Add(time.Hour)
	for _, s := range []*store.Session{old, fresh} {
		if err := st.SaveSession(ctx, s); err != nil {
			t.Fatalf("SaveSession: %v", err)
		}
	}

	ids, err := st.ListExpired(ctx, cutoff)
	if err != nil {
		t.Fatalf("ListExpired: %v", err)
	}
	if len(ids) != 1 || ids[0] != "old" {
		t.Fatalf("ListExpired: got %v", ids)
	}
	n, err := st.DeleteExpired(ctx, cutoff)
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpired: n=%d err=%v", n, err)
	}
	if got, _ := st.GetSession(ctx, "fresh"); got == nil {
		t.Fatal("fresh session was deleted")
	}
}

func TestListSessions_filtersAndStats(t *testing.T) {
	t.Parallel()

	st, err := Open(filepath.Join(t.TempDir(), "sessions.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	a := testSession("a", "alice")
	b := testSession("b", "alice")
	b.State = "running"
	c := testSession("c", "bob")
	for _, s := range []*store.Session{a, b, c} {
		if err := st.SaveSession(ctx, s); err != nil {
			t.Fatalf("SaveSession: %v", err)
		}
	}

	byUser, _ := st.ListSessions(ctx, store.Filter{UserID: "alice"})
	if len(byUser) != 2 {
		t.Fatalf("ListSessions alice: got %d", len(byUser))
	}
	byState, _ := st.ListSessions(ctx, store.Filter{State: "running"})
	if len(byState) != 1 || byState[0].SessionID != "b" {
		t.Fatalf("ListSessions running: got %+v", byState)
	}
	limited, _ := st.ListSessions(ctx, store.Filter{Limit: 1})
	if len(limited) != 1 {
		t.Fatalf("ListSessions limit: got %d", len(limited))
	}

	counts, err := st.CountByState(ctx)
	if err != nil {
		t.Fatalf("CountByState: %v", err)
	}
	if counts["created"] != 2 || counts["running"] != 1 {
		t.Fatalf("CountByState: got %v", counts)
	}
}

func TestSaveSessions_bulk(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sessions.json")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	var batch []*store.Session
	for i := 0; i < 5; i++ {
		batch = append(batch, testSession(fmt.Sprintf("s%d", i), "u1"))
	}
	if err := st.SaveSessions(ctx, batch); err != nil {
		t.Fatalf("SaveSessions: %v", err)
	}
	st2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	all, _ := st2.LoadAll(ctx)
	if len(all) != 5 {
		t.Fatalf("after bulk save: got %d, want 5", len(all))
	}
}

func TestConcurrentSaves(t *testing.T) {
	t.Parallel()

	st, err := Open(filepath.Join(t.TempDir(), "sessions.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	const n = 10
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(j int) {
			done <- st.SaveSession(ctx, testSession(fmt.Sprintf("s%d", j), "u1"))
		}(i)
	}
	for i := 0; i < n; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent SaveSession: %v", err)
		}
	}
	all, _ := st.LoadAll(ctx)
	if len(all) != n {
		t.Fatalf("expected %d sessions, got %d", n, len(all))
	}
}
