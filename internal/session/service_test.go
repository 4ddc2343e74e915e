package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/store"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/store/file"
	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

func newCacheService() *Service {
	return NewService(nil, Options{Expiration: time.Hour})
}

func newFileService(t *testing.T, path string) *Service {
	t.Helper()
	st, err := file.Open(path)
	if err != nil {
		t.Fatalf("open file store: %+v", err)
	}
	return NewService(st, Options{PersistenceEnabled: true, AutoSave: true, Expiration: time.Hour})
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newCacheService()

	created, err := svc.Create(ctx, "u1", map[string]any{"company_name": "Acme"})
	if err != nil {
		t.Fatalf("Create: %+v", err)
	}
	if created.SessionID == "" {
		t.Fatal("Create: empty session id")
	}
	if created.State != models.StateCreated {
		t.Fatalf("Create: state = %q, want %q", created.State, models.StateCreated)
	}

	got, err := svc.Get(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("Get: %+v", err)
	}
	if got.UserID != "u1" {
		t.Fatalf("Get: user = %q, want u1", got.UserID)
	}
	if len(got.AgentStates) != 0 {
		t.Fatalf("Get: agent states = %d, want 0", len(got.AgentStates))
	}
	if got.Metadata["company_name"] != "Acme" {
		t.Fatalf("Get: metadata = %v", got.Metadata)
	}
}

func TestCreate_emptyUserID(t *testing.T) {
	t.Parallel()
	svc := newCacheService()
	_, err := svc.Create(context.Background(), "", nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Create(\"\"): err = %+v, want ValidationError", err)
	}
	if verr.Field != "user_id" {
		t.Fatalf("ValidationError field = %q, want user_id", verr.Field)
	}
}

func TestGet_notFound(t *testing.T) {
	t.Parallel()
	svc := newCacheService()
	_, err := svc.Get(context.Background(), "no-such-session")
	var nfe *NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("Get: err = %+v, want NotFoundError", err)
	}
	if nfe.SessionID != "no-such-session" {
		t.Fatalf("NotFoundError session = %q", nfe.SessionID)
	}
}

func TestGet_returnsCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newCacheService()
	created, err := svc.Create(ctx, "u1", map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("Create: %+v", err)
	}

	got, err := svc.Get(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("Get: %+v", err)
	}
	got.Metadata["k"] = "mutated"
	got.State = models.StateFailed

	again, err := svc.Get(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("Get again: %+v", err)
	}
	if again.Metadata["k"] != "v" || again.State != models.StateCreated {
		t.Fatal("caller mutation leaked into the cache")
	}
}

func TestUpdateAgentState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newCacheService()
	created, _ := svc.Create(ctx, "u1", nil)

	errMsg := "rate limited"
	if err := svc.UpdateAgentState(ctx, created.SessionID, models.AgentResearch, &store.AgentState{
		Success: false,
		Error:   &errMsg,
	}); err != nil {
		t.Fatalf("UpdateAgentState: %+v", err)
	}

	got, _ := svc.Get(ctx, created.SessionID)
	st, ok := got.AgentStates[models.AgentResearch]
	if !ok {
		t.Fatal("agent state not recorded")
	}
	if st.AgentName != models.AgentResearch {
		t.Fatalf("agent name = %q, want %q", st.AgentName, models.AgentResearch)
	}
	if st.Error == nil || *st.Error != errMsg {
		t.Fatalf("agent error = %v, want %q", st.Error, errMsg)
	}
	if !got.UpdatedAt.After(created.UpdatedAt) && !got.UpdatedAt.Equal(created.UpdatedAt) {
		t.Fatal("UpdatedAt went backwards")
	}
}

func TestAddArtifact(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newCacheService()
	created, _ := svc.Create(ctx, "u1", nil)

	for i := 0; i < 3; i++ {
		err := svc.AddArtifact(ctx, created.SessionID, models.ArtifactResearch, map[string]any{"n": i})
		if err != nil {
			t.Fatalf("AddArtifact: %+v", err)
		}
	}
	got, _ := svc.Get(ctx, created.SessionID)
	if len(got.Artifacts) != 3 {
		t.Fatalf("artifacts = %d, want 3", len(got.Artifacts))
	}
	if got.Artifacts[0].Type != models.ArtifactResearch {
		t.Fatalf("artifact type = %q", got.Artifacts[0].Type)
	}
}

func TestCheckpoint_idSequence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newCacheService()
	created, _ := svc.Create(ctx, "u1", nil)

	cp1, err := svc.Checkpoint(ctx, created.SessionID, "first")
	if err != nil {
		t.Fatalf("Checkpoint: %+v", err)
	}
	cp2, err := svc.Checkpoint(ctx, created.SessionID, "second")
	if err != nil {
		t.Fatalf("Checkpoint: %+v", err)
	}
	if want := fmt.Sprintf("%s_1", created.SessionID); cp1.CheckpointID != want {
		t.Fatalf("checkpoint id = %q, want %q", cp1.CheckpointID, want)
	}
	if want := fmt.Sprintf("%s_2", created.SessionID); cp2.CheckpointID != want {
		t.Fatalf("checkpoint id = %q, want %q", cp2.CheckpointID, want)
	}
	if cp1.Snapshot.State != models.StateCreated {
		t.Fatalf("snapshot state = %q", cp1.Snapshot.State)
	}
}

func TestPauseResume(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newCacheService()
	created, _ := svc.Create(ctx, "u1", nil)

	paused, err := svc.Pause(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("Pause: %+v", err)
	}
	if paused.State != models.StatePaused {
		t.Fatalf("state = %q, want paused", paused.State)
	}
	if len(paused.Checkpoints) != 1 {
		t.Fatalf("checkpoints = %d, want 1 (pause checkpoints)", len(paused.Checkpoints))
	}

	resumed, err := svc.Resume(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("Resume: %+v", err)
	}
	if resumed.State != models.StateRunning {
		t.Fatalf("state = %q, want running", resumed.State)
	}

	// Resuming a session that is not paused is a state error.
	_, err = svc.Resume(ctx, created.SessionID)
	var serr *StateError
	if !errors.As(err, &serr) {
		t.Fatalf("Resume(running): err = %+v, want StateError", err)
	}
}

func TestResume_afterCompleted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newCacheService()
	created, _ := svc.Create(ctx, "u1", nil)

	if _, err := svc.Complete(ctx, created.SessionID); err != nil {
		t.Fatalf("Complete: %+v", err)
	}
	_, err := svc.Resume(ctx, created.SessionID)
	var serr *StateError
	if !errors.As(err, &serr) {
		t.Fatalf("Resume(completed): err = %+v, want StateError", err)
	}
	if serr.State != models.StateCompleted {
		t.Fatalf("StateError state = %q", serr.State)
	}
}

func TestComplete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newCacheService()
	created, _ := svc.Create(ctx, "u1", nil)

	done, err := svc.Complete(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("Complete: %+v", err)
	}
	if done.State != models.StateCompleted {
		t.Fatalf("state = %q", done.State)
	}
	if done.CompletedAt == nil {
		t.Fatal("CompletedAt not stamped")
	}

	if _, err := svc.Complete(ctx, created.SessionID); err == nil {
		t.Fatal("Complete on completed session should fail")
	}
}

func TestFail_recordsReason(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newCacheService()
	created, _ := svc.Create(ctx, "u1", nil)

	failed, err := svc.Fail(ctx, created.SessionID, "llm unavailable")
	if err != nil {
		t.Fatalf("Fail: %+v", err)
	}
	if failed.State != models.StateFailed {
		t.Fatalf("state = %q", failed.State)
	}
	if failed.Metadata["failure_reason"] != "llm unavailable" {
		t.Fatalf("metadata = %v", failed.Metadata)
	}
}

func TestMarkRunning(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newCacheService()
	created, _ := svc.Create(ctx, "u1", nil)

	running, err := svc.MarkRunning(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("MarkRunning: %+v", err)
	}
	if running.State != models.StateRunning {
		t.Fatalf("state = %q", running.State)
	}

	if _, err := svc.Complete(ctx, created.SessionID); err != nil {
		t.Fatalf("Complete: %+v", err)
	}
	_, err = svc.MarkRunning(ctx, created.SessionID)
	var serr *StateError
	if !errors.As(err, &serr) {
		t.Fatalf("MarkRunning(completed): err = %+v, want StateError", err)
	}
}

func TestDelete_idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newCacheService()
	created, _ := svc.Create(ctx, "u1", nil)

	if err := svc.Delete(ctx, created.SessionID); err != nil {
		t.Fatalf("Delete: %+v", err)
	}
	if err := svc.Delete(ctx, created.SessionID); err != nil {
		t.Fatalf("Delete twice: %+v", err)
	}
	if _, err := svc.Get(ctx, created.SessionID); err == nil {
		t.Fatal("Get after delete should fail")
	}
}

func TestGet_evictsExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(nil, Options{Expiration: 20 * time.Millisecond})

	created, _ := svc.Create(ctx, "u1", nil)
	time.Sleep(50 * time.Millisecond)

	_, err := svc.Get(ctx, created.SessionID)
	var nfe *NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("Get(expired): err = %+v, want NotFoundError", err)
	}
}

func TestCleanupExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(nil, Options{Expiration: 60 * time.Millisecond})

	old, _ := svc.Create(ctx, "u1", nil)
	time.Sleep(100 * time.Millisecond)
	fresh, _ := svc.Create(ctx, "u1", nil)

	n, err := svc.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired: %+v", err)
	}
	if n != 1 {
		t.Fatalf("cleaned = %d, want 1", n)
	}
	if _, err := svc.Get(ctx, old.SessionID); err == nil {
		t.Fatal("expired session survived cleanup")
	}
	if _, err := svc.Get(ctx, fresh.SessionID); err != nil {
		t.Fatalf("fresh session evicted: %+v", err)
	}
}

func TestList_ordersByUpdatedAt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newCacheService()

	a, _ := svc.Create(ctx, "u1", nil)
	time.Sleep(2 * time.Millisecond)
	b, _ := svc.Create(ctx, "u1", nil)
	time.Sleep(2 * time.Millisecond)
	_, _ = svc.Create(ctx, "u2", nil)

	// Touch a so it sorts first.
	time.Sleep(2 * time.Millisecond)
	if err := svc.SetMetadata(ctx, a.SessionID, "touched", true); err != nil {
		t.Fatalf("SetMetadata: %+v", err)
	}

	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %+v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list = %d sessions, want 2", len(list))
	}
	if list[0].SessionID != a.SessionID || list[1].SessionID != b.SessionID {
		t.Fatalf("order = [%s %s], want [%s %s]", list[0].SessionID, list[1].SessionID, a.SessionID, b.SessionID)
	}

	all, err := svc.List(ctx, "")
	if err != nil {
		t.Fatalf("List all: %+v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all = %d sessions, want 3", len(all))
	}
}

func TestStats_cacheOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newCacheService()

	a, _ := svc.Create(ctx, "u1", nil)
	_, _ = svc.Create(ctx, "u1", nil)
	if _, err := svc.Complete(ctx, a.SessionID); err != nil {
		t.Fatalf("Complete: %+v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %+v", err)
	}
	if stats.Cached != 2 {
		t.Fatalf("cached = %d, want 2", stats.Cached)
	}
	if stats.ByState[models.StateCompleted] != 1 || stats.ByState[models.StateCreated] != 1 {
		t.Fatalf("by state = %v", stats.ByState)
	}
}

func TestPersistence_survivesRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.json")

	svc := newFileService(t, path)
	created, err := svc.Create(ctx, "u1", map[string]any{"company_name": "Acme"})
	if err != nil {
		t.Fatalf("Create: %+v", err)
	}
	if _, err := svc.Pause(ctx, created.SessionID); err != nil {
		t.Fatalf("Pause: %+v", err)
	}
	if err := svc.Close(ctx); err != nil {
		t.Fatalf("Close: %+v", err)
	}

	svc2 := newFileService(t, path)
	if err := svc2.Load(ctx); err != nil {
		t.Fatalf("Load: %+v", err)
	}
	got, err := svc2.Get(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("Get after restart: %+v", err)
	}
	if got.State != models.StatePaused {
		t.Fatalf("state = %q, want paused", got.State)
	}
	if len(got.Checkpoints) != 1 {
		t.Fatalf("checkpoints = %d, want 1", len(got.Checkpoints))
	}
}

// flakyStore fails SaveSession on demand and records what reaches it.
type flakyStore struct {
	mu    sync.Mutex
	fail  bool
	saved map[string]*store.Session
	bulk  int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{saved: make(map[string]*store.Session)}
}

func (f *flakyStore) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *flakyStore) SaveSession(ctx context.Context, s *store.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("disk full")
	}
	f.saved[s.SessionID] = s.Clone()
	return nil
}

func (f *flakyStore) SaveSessions(ctx context.Context, sessions []*store.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("disk full")
	}
	for _, s := range sessions {
		f.saved[s.SessionID] = s.Clone()
	}
	f.bulk++
	return nil
}

func (f *flakyStore) GetSession(ctx context.Context, id string) (*store.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.saved[id]; ok {
		return s.Clone(), nil
	}
	return nil, nil
}

func (f *flakyStore) ListSessions(ctx context.Context, _ store.Filter) ([]*store.Session, error) {
	return nil, nil
}

func (f *flakyStore) LoadAll(ctx context.Context) ([]*store.Session, error) { return nil, nil }

func (f *flakyStore) DeleteSession(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.saved[id]
	delete(f.saved, id)
	return ok, nil
}

func (f *flakyStore) ListExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	return nil, nil
}

func (f *flakyStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *flakyStore) CountByState(ctx context.Context) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (f *flakyStore) Close() error { return nil }

func TestSaveFailure_staysDirtyUntilFlush(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := newFlakyStore()
	svc := NewService(fs, Options{PersistenceEnabled: true, AutoSave: true, Expiration: time.Hour})

	created, err := svc.Create(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("Create: %+v", err)
	}

	fs.setFail(true)
	_, err = svc.Pause(ctx, created.SessionID)
	var perr *StorageError
	if !errors.As(err, &perr) {
		t.Fatalf("Pause with failing store: err = %+v, want StorageError", err)
	}

	// The mutation is applied in the cache even though the save failed.
	got, err := svc.Get(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("Get: %+v", err)
	}
	if got.State != models.StatePaused {
		t.Fatalf("state = %q, want paused (cache keeps the mutation)", got.State)
	}

	// Once the store recovers, Flush retries the dirty session.
	fs.setFail(false)
	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("Flush: %+v", err)
	}
	fs.mu.Lock()
	saved := fs.saved[created.SessionID]
	fs.mu.Unlock()
	if saved == nil || saved.State != models.StatePaused {
		t.Fatalf("flushed session = %+v, want paused", saved)
	}
}

func TestFlush_deferredWrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := newFlakyStore()
	svc := NewService(fs, Options{PersistenceEnabled: true, AutoSave: false, Expiration: time.Hour})

	a, _ := svc.Create(ctx, "u1", nil)
	b, _ := svc.Create(ctx, "u2", nil)

	fs.mu.Lock()
	n := len(fs.saved)
	fs.mu.Unlock()
	if n != 0 {
		t.Fatalf("store saw %d saves before flush, want 0", n)
	}

	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("Flush: %+v", err)
	}
	fs.mu.Lock()
	_, okA := fs.saved[a.SessionID]
	_, okB := fs.saved[b.SessionID]
	bulk := fs.bulk
	fs.mu.Unlock()
	if !okA || !okB {
		t.Fatal("flush did not persist all dirty sessions")
	}
	if bulk != 1 {
		t.Fatalf("bulk saves = %d, want 1", bulk)
	}

	// Second flush is a no-op.
	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("Flush again: %+v", err)
	}
	fs.mu.Lock()
	bulk = fs.bulk
	fs.mu.Unlock()
	if bulk != 1 {
		t.Fatalf("bulk saves after no-op flush = %d, want 1", bulk)
	}
}

func TestConcurrentMutations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newCacheService()
	created, _ := svc.Create(ctx, "u1", nil)

	const n = 20
	errc := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			errc <- svc.SetMetadata(ctx, created.SessionID, fmt.Sprintf("k%d", i), i)
		}(i)
	}
	for i := 0; i < n; i++ {
		if err := <-errc; err != nil {
			t.Fatalf("SetMetadata: %+v", err)
		}
	}

	got, err := svc.Get(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("Get: %+v", err)
	}
	if len(got.Metadata) != n {
		t.Fatalf("metadata keys = %d, want %d", len(got.Metadata), n)
	}
}
