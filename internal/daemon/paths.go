package daemon

import (
	"path/filepath"
)

// runDir holds the daemon's runtime state (pid, lock, addr, log). It lives
// inside home so `copilot nuke` removes it along with everything else.
func runDir(home string) string {
	return filepath.Join(home, "run")
}

func pidPath(home string) string {
	return filepath.Join(runDir(home), "copilot.pid")
}

func lockPath(home string) string {
	return filepath.Join(runDir(home), "copilot.lock")
}

func addrPath(home string) string {
	return filepath.Join(runDir(home), "copilot.addr")
}
