//go:build windows

package daemon

import (
	"os"
	"os/exec"
)

func setDaemonSysProcAttr(cmd *exec.Cmd) {
	// No Setsid on Windows; the child stays attached to the console.
}

func processExists(pid int) bool {
	// Windows has no kill(pid, 0). Treat any positive pid as alive; a stale
	// pid file just means clients get connection refused.
	return pid > 0
}

func signalTerm(proc *os.Process) error {
	// SIGTERM is not deliverable on Windows.
	return proc.Kill()
}
