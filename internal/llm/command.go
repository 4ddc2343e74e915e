package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/sandbox"
)

// Command runs a local binary as the model engine: the prompt arrives on
// stdin (system text, blank line, user text), the completion is everything
// written to stdout. If SandboxHome is set and bubblewrap is available, the
// process runs inside a minimal bwrap sandbox.
type Command struct {
	Command     string
	Args        []string
	Timeout     time.Duration
	SandboxHome string
}

func (c *Command) Name() string { return "command" }

// Complete runs the command once and returns its trimmed stdout.
func (c *Command) Complete(ctx context.Context, req Request) (string, error) {
	if c.Command == "" {
		return "", errors.New("llm command is required")
	}
	line := strings.TrimSpace(c.Command + " " + strings.Join(c.Args, " "))
	if sandbox.BlockedShellCommand(line) {
		return "", fmt.Errorf("llm command %q blocked by deny list", line)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	var cmd *exec.Cmd
	if c.SandboxHome != "" {
		cmd = sandbox.WrapCommand(ctx, c.SandboxHome, c.Command, c.Args)
	} else {
		cmd = exec.CommandContext(ctx, c.Command, c.Args...)
	}

	var prompt strings.Builder
	if req.System != "" {
		prompt.WriteString(req.System)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString(req.Prompt)
	cmd.Stdin = strings.NewReader(prompt.String())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		slog.Warn("llm command failed", "error", err, "stderr", strings.TrimSpace(stderr.String()))
		return "", fmt.Errorf("llm command: %w", err)
	}
	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", errors.New("llm command produced no output")
	}
	return out, nil
}
