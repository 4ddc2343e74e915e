package questions

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_embeddedDefaults(t *testing.T) {
	t.Parallel()
	b, err := Load("")
	if err != nil {
		t.Fatalf("Load: %+v", err)
	}
	if b.Count() != 5 {
		t.Fatalf("count = %d, want 5", b.Count())
	}
	q := b.ByID("q1")
	if q == nil {
		t.Fatal("q1 not found")
	}
	if q.Title != "Two Sum" || q.Difficulty != "easy" {
		t.Fatalf("q1 = %q/%q, want Two Sum/easy", q.Title, q.Difficulty)
	}
	if len(q.TestCases) != 3 {
		t.Fatalf("q1 test cases = %d, want 3", len(q.TestCases))
	}
}

func TestLoad_fileOverride(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "questions.json")
	data := `{"questions": [{"id": "x1", "title": "Custom", "difficulty": "hard", "description": "d"}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %+v", err)
	}
	if b.Count() != 1 {
		t.Fatalf("count = %d, want 1", b.Count())
	}
	if q := b.ByID("x1"); q == nil || q.Title != "Custom" {
		t.Fatalf("x1 = %+v", q)
	}
	// Optional fields come back as empty slices, not nil.
	if q := b.ByID("x1"); q.Tags == nil || q.Hints == nil || q.TestCases == nil {
		t.Fatal("optional slices not defaulted")
	}
}

func TestLoad_bareListFormat(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "questions.json")
	data := `[{"id": "x1", "title": "A", "difficulty": "easy", "description": "d"},
	          {"id": "x2", "title": "B", "difficulty": "medium", "description": "d"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %+v", err)
	}
	if b.Count() != 2 {
		t.Fatalf("count = %d, want 2", b.Count())
	}
}

func TestLoad_missingFileFallsBack(t *testing.T) {
	t.Parallel()
	b, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %+v", err)
	}
	if b.Count() != 5 {
		t.Fatalf("count = %d, want embedded 5", b.Count())
	}
}

func TestLoad_invalidJSONFallsBack(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "questions.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %+v", err)
	}
	if b.Count() != 5 {
		t.Fatalf("count = %d, want embedded 5", b.Count())
	}
}

func TestValidate_skipsIncompleteRecords(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "questions.json")
	data := `{"questions": [
		{"id": "ok", "title": "T", "difficulty": "easy", "description": "d"},
		{"id": "no-title", "difficulty": "easy", "description": "d"},
		{"title": "no-id", "difficulty": "easy", "description": "d"}
	]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %+v", err)
	}
	if b.Count() != 1 {
		t.Fatalf("count = %d, want 1", b.Count())
	}
}

func TestValidate_coercesUnknownDifficulty(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "questions.json")
	data := `{"questions": [{"id": "x1", "title": "T", "difficulty": "extreme", "description": "d"}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %+v", err)
	}
	if q := b.ByID("x1"); q == nil || q.Difficulty != "medium" {
		t.Fatalf("difficulty = %+v, want medium", q)
	}
}

func TestValidate_duplicateIDKeepsLast(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "questions.json")
	data := `{"questions": [
		{"id": "dup", "title": "First", "difficulty": "easy", "description": "d"},
		{"id": "dup", "title": "Second", "difficulty": "hard", "description": "d"}
	]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %+v", err)
	}
	if b.Count() != 1 {
		t.Fatalf("count = %d, want 1", b.Count())
	}
	if q := b.ByID("dup"); q == nil || q.Title != "Second" {
		t.Fatalf("dup = %+v, want Second", q)
	}
}

func TestByDifficulty(t *testing.T) {
	t.Parallel()
	b, err := Load("")
	if err != nil {
		t.Fatalf("Load: %+v", err)
	}
	easy := b.ByDifficulty("easy")
	if len(easy) != 2 {
		t.Fatalf("easy = %d, want 2", len(easy))
	}
	// Unknown difficulty falls back to medium.
	med := b.ByDifficulty("extreme")
	if len(med) != 3 {
		t.Fatalf("fallback medium = %d, want 3", len(med))
	}
}

func TestByID_notFound(t *testing.T) {
	t.Parallel()
	b, err := Load("")
	if err != nil {
		t.Fatalf("Load: %+v", err)
	}
	if q := b.ByID("q999"); q != nil {
		t.Fatalf("q999 = %+v, want nil", q)
	}
}

func TestFilterByTags(t *testing.T) {
	t.Parallel()
	b, err := Load("")
	if err != nil {
		t.Fatalf("Load: %+v", err)
	}
	got := b.FilterByTags([]string{"ARRAYS"})
	if len(got) != 2 {
		t.Fatalf("arrays = %d, want 2", len(got))
	}
	all := b.FilterByTags(nil)
	if len(all) != 5 {
		t.Fatalf("no tags = %d, want all 5", len(all))
	}
}

func TestByDifficultyAndTags(t *testing.T) {
	t.Parallel()
	b, err := Load("")
	if err != nil {
		t.Fatalf("Load: %+v", err)
	}
	got := b.ByDifficultyAndTags("medium", []string{"tree"})
	if len(got) != 1 || got[0].ID != "q5" {
		t.Fatalf("medium+tree = %+v, want q5", got)
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()
	b, err := Load("")
	if err != nil {
		t.Fatalf("Load: %+v", err)
	}
	got := b.Search("substring")
	if len(got) != 1 || got[0].ID != "q4" {
		t.Fatalf("search substring = %+v, want q4", got)
	}
	if got := b.Search(""); got != nil {
		t.Fatalf("empty query = %+v, want nil", got)
	}
}
