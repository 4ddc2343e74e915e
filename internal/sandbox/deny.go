package sandbox

import (
	"strings"
)

// commandDenyList contains substrings that must not appear in the configured
// LLM command line. Blocks destructive commands from being wired in as the
// model engine.
var commandDenyList = []string{
	"sqlite3",
	"DROP TABLE",
	"DELETE FROM",
	"rm -rf",
	"chmod 777",
	"curl | sh",
	"wget | sh",
	"curl | bash",
	"wget | bash",
	"| sh",
	"| bash",
	"eval $(",
	"> /dev/sd",
	"mkfs.",
	":(){ :|:& };:", // fork bomb
}

// BlockedShellCommand returns true if the command line contains any denied
// substring. Matching is case-insensitive. Call this before executing the
// command LLM engine.
func BlockedShellCommand(cmdLine string) bool {
	lower := strings.ToLower(strings.TrimSpace(cmdLine))
	for _, deny := range commandDenyList {
		if strings.Contains(lower, strings.ToLower(deny)) {
			return true
		}
	}
	return false
}
