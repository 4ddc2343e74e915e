package identity

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProfilePath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID string
		want   string
	}{
		{"alice", filepath.Join("/home", "users", "alice", "profile.yaml")},
		{"Alice Bob", filepath.Join("/home", "users", "alice_bob", "profile.yaml")},
		{"", filepath.Join("/home", "users", "default", "profile.yaml")},
	}
	for _, tt := range tests {
		if got := ProfilePath("/home", tt.userID); got != tt.want {
			t.Errorf("ProfilePath(%q) = %q, want %q", tt.userID, got, tt.want)
		}
	}
}

func TestSaveProfile_LoadProfile(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	p := &Profile{
		Name:          "Test User",
		Email:         "test@example.com",
		TargetRole:    "Backend Engineer",
		TargetCompany: "Acme",
		Source:        "api",
	}
	if err := SaveProfile(home, "testuser", p); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	loaded, err := LoadProfile(home, "testuser")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if loaded == nil || loaded.Name != "Test User" || loaded.Email != "test@example.com" {
		t.Fatalf("LoadProfile: got %+v", loaded)
	}
	if loaded.TargetRole != "Backend Engineer" || loaded.TargetCompany != "Acme" {
		t.Fatalf("LoadProfile target fields: got %+v", loaded)
	}
}

func TestLoadProfile_missingFile(t *testing.T) {
	t.Parallel()
	loaded, err := LoadProfile(t.TempDir(), "nonexistent")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if loaded != nil {
		t.Fatalf("LoadProfile missing file: expected nil, got %+v", loaded)
	}
}

func TestLoadProfile_invalidYAML(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	path := ProfilePath(home, "bad")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not: valid: yaml: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProfile(home, "bad"); err == nil {
		t.Fatal("LoadProfile: expected error for invalid YAML")
	}
}

func TestDirectory_TargetCompany(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	if err := SaveProfile(home, "alice", &Profile{Name: "Alice", TargetCompany: "Initech", TargetRole: "SRE"}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	d := Directory{Home: home}
	if got := d.TargetCompany("alice"); got != "Initech" {
		t.Fatalf("TargetCompany: got %q, want %q", got, "Initech")
	}
	if got := d.TargetRole("alice"); got != "SRE" {
		t.Fatalf("TargetRole: got %q, want %q", got, "SRE")
	}
	if got := d.TargetCompany("stranger"); got != "" {
		t.Fatalf("TargetCompany for unknown user: got %q, want empty", got)
	}
}

func TestEnsureProfile(t *testing.T) {
	t.Parallel()
	home := t.TempDir()

	// First call detects (possibly empty) git identity and saves it.
	first, err := EnsureProfile(home, "newuser", "")
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if first == nil {
		t.Fatal("EnsureProfile: expected a profile")
	}
	if _, err := os.Stat(ProfilePath(home, "newuser")); err != nil {
		t.Fatalf("EnsureProfile should persist the profile: %v", err)
	}

	// Second call returns the stored profile instead of re-detecting.
	if err := SaveProfile(home, "newuser", &Profile{Name: "Stored", TargetCompany: "Globex"}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	second, err := EnsureProfile(home, "newuser", "")
	if err != nil {
		t.Fatalf("EnsureProfile second call: %v", err)
	}
	if second.Name != "Stored" || second.TargetCompany != "Globex" {
		t.Fatalf("EnsureProfile should return stored profile, got %+v", second)
	}
}

func TestDetectFromGit_doesNotFail(t *testing.T) {
	t.Parallel()
	p, err := DetectFromGit(t.TempDir())
	if err != nil {
		t.Fatalf("DetectFromGit: %v", err)
	}
	if p.Source != "git" {
		t.Fatalf("DetectFromGit source: got %q", p.Source)
	}
}
