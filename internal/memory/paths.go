package memory

import (
	"os"
	"path/filepath"
	"strings"
)

// SafeUserName returns a filesystem-safe version of the user id (e.g. for
// directory names). Lowercased, spaces become underscores, empty falls back
// to "default".
func SafeUserName(userID string) string {
	safe := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(userID), " ", "_"))
	if safe == "" {
		safe = "default"
	}
	return safe
}

// SafeAgentName returns a filesystem-safe version of the agent name.
func SafeAgentName(agentName string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(agentName), " ", "_"))
}

// UserDir returns the path to a user's memory directory under home:
// <home>/users/<safe_user>/.
func UserDir(home, userID string) string {
	return filepath.Join(home, "users", SafeUserName(userID))
}

// AgentsDir returns the directory holding per-agent profiles: <home>/agents/.
func AgentsDir(home string) string {
	return filepath.Join(home, "agents")
}

// AgentProfilePath returns the path to an agent's profile:
// <home>/agents/<safe_agent>.yaml.
func AgentProfilePath(home, agentName string) string {
	return filepath.Join(AgentsDir(home), SafeAgentName(agentName)+".yaml")
}

// JournalPath returns the path to a user's practice journal: <userDir>/journal.md.
func JournalPath(userDir string) string {
	return filepath.Join(userDir, "journal.md")
}

// PlanPath returns the path to a user's prep plan: <userDir>/plan.md.
func PlanPath(userDir string) string {
	return filepath.Join(userDir, "plan.md")
}

// HistoryPath returns the path to a user's session history: <userDir>/history.jsonl.
func HistoryPath(userDir string) string {
	return filepath.Join(userDir, "history.jsonl")
}

// ProfilePath returns the path to a user's profile: <userDir>/profile.yaml.
func ProfilePath(userDir string) string {
	return filepath.Join(userDir, "profile.yaml")
}

// EnsureUserDir creates the user's memory directory if it does not exist and
// returns its path.
func EnsureUserDir(home, userID string) (string, error) {
	dir := UserDir(home, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
