// Package identity stores per-user profiles: who the user is and which role
// and company they are preparing for.
package identity

import (
	"os"
	"os/exec"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/memory"
)

// Profile holds a user's identity and interview target.
type Profile struct {
	Name          string `yaml:"name"`
	Email         string `yaml:"email"`
	TargetRole    string `yaml:"target_role,omitempty"`
	TargetCompany string `yaml:"target_company,omitempty"`
	Source        string `yaml:"source,omitempty"` // e.g. "git", "api"
}

// ProfilePath returns the path to a user's profile:
// <home>/users/<safe_user>/profile.yaml.
func ProfilePath(home, userID string) string {
	return memory.ProfilePath(memory.UserDir(home, userID))
}

// LoadProfile loads a user's profile. Returns nil profile and nil error when
// none has been saved.
func LoadProfile(home, userID string) (*Profile, error) {
	data, err := os.ReadFile(ProfilePath(home, userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProfile writes the profile, creating the user directory if needed.
func SaveProfile(home, userID string, p *Profile) error {
	dir, err := memory.EnsureUserDir(home, userID)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(memory.ProfilePath(dir), data, 0o644)
}

// DetectFromGit reads `git config user.name` and `git config user.email`
// (in repoDir, or global if repoDir is empty) to prefill a profile. Fields
// whose lookup fails stay empty.
func DetectFromGit(repoDir string) (Profile, error) {
	p := Profile{Source: "git"}
	if name, err := gitConfig(repoDir, "user.name"); err == nil {
		p.Name = name
	}
	if email, err := gitConfig(repoDir, "user.email"); err == nil {
		p.Email = email
	}
	return p, nil
}

func gitConfig(repoDir, key string) (string, error) {
	cmd := exec.Command("git", "config", "--get", key)
	if repoDir != "" {
		cmd.Dir = repoDir
	}
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// EnsureProfile returns the stored profile, detecting name and email from
// git config and saving a fresh one when none exists yet.
func EnsureProfile(home, userID, repoDir string) (*Profile, error) {
	p, err := LoadProfile(home, userID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}
	detected, err := DetectFromGit(repoDir)
	if err != nil {
		return nil, err
	}
	if err := SaveProfile(home, userID, &detected); err != nil {
		return nil, err
	}
	return &detected, nil
}

// Directory resolves profile fields for other packages. Missing profiles
// resolve to zero values rather than errors.
type Directory struct {
	Home string
}

// TargetCompany returns the company the user is preparing for, or empty when
// no profile exists.
func (d Directory) TargetCompany(userID string) string {
	p, err := LoadProfile(d.Home, userID)
	if err != nil || p == nil {
		return ""
	}
	return p.TargetCompany
}

// TargetRole returns the role the user is preparing for, or empty when no
// profile exists.
func (d Directory) TargetRole(userID string) string {
	p, err := LoadProfile(d.Home, userID)
	if err != nil || p == nil {
		return ""
	}
	return p.TargetRole
}
