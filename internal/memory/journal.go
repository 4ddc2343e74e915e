package memory

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// SessionEntry represents one completed practice session appended to a
// user's journal.
type SessionEntry struct {
	SessionID string
	Company   string
	Role      string
	Outcome   string
	Attempted int
	Solved    int
	Notes     string
	CreatedAt time.Time
}

// Journal manages a user's journal.md file: append entries and read/summarize.
type Journal struct {
	Home   string
	UserID string
}

// Append adds an entry to the user's journal. Creates the user directory and
// journal file if they do not exist. The entry is appended in markdown form.
func (j *Journal) Append(ctx context.Context, entry SessionEntry) error {
	dir, err := EnsureUserDir(j.Home, j.UserID)
	if err != nil {
		return fmt.Errorf("create user dir: %w", err)
	}
	path := JournalPath(dir)
	block := formatSessionBlock(entry)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(block); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

func formatSessionBlock(e SessionEntry) string {
	var b strings.Builder
	b.WriteString("\n---\n\n")
	b.WriteString("## ")
	b.WriteString(e.CreatedAt.Format("2006-01-02 15:04"))
	if e.Company != "" {
		b.WriteString(" - ")
		b.WriteString(e.Company)
	}
	b.WriteString("\n\n")
	if e.SessionID != "" {
		b.WriteString("- **Session:** ")
		b.WriteString(e.SessionID)
		b.WriteString("\n")
	}
	if e.Role != "" {
		b.WriteString("- **Role:** ")
		b.WriteString(e.Role)
		b.WriteString("\n")
	}
	if e.Outcome != "" {
		b.WriteString("- **Outcome:** ")
		b.WriteString(e.Outcome)
		b.WriteString("\n")
	}
	if e.Attempted > 0 {
		rate := float64(e.Solved) / float64(e.Attempted)
		b.WriteString(fmt.Sprintf("- **Solved:** %d/%d (%.0f%% success)\n", e.Solved, e.Attempted, rate*100))
	}
	if e.Notes != "" {
		b.WriteString("- **Notes:** ")
		b.WriteString(e.Notes)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// Read returns the raw markdown tail of the journal, up to limitBytes. A
// limit of 0 means return the whole file content. A missing journal reads
// as empty.
func (j *Journal) Read(ctx context.Context, limitBytes int) (string, error) {
	path := JournalPath(UserDir(j.Home, j.UserID))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	s := string(data)
	if limitBytes <= 0 || len(s) <= limitBytes {
		return s, nil
	}
	return s[len(s)-limitBytes:], nil
}

// Tail returns the last n journal entries as markdown, oldest of the n
// first. n <= 0 returns the whole journal.
func (j *Journal) Tail(ctx context.Context, n int) (string, error) {
	s, err := j.Read(ctx, 0)
	if err != nil || n <= 0 {
		return s, err
	}
	var blocks []string
	for _, b := range strings.Split(s, "\n---\n") {
		if strings.TrimSpace(b) != "" {
			blocks = append(blocks, b)
		}
	}
	if len(blocks) == 0 {
		return "", nil
	}
	if len(blocks) > n {
		blocks = blocks[len(blocks)-n:]
	}
	return "\n---\n" + strings.Join(blocks, "\n---\n"), nil
}

// Summary returns a short summary of the journal for context. Useful for
// injecting into agent prompts.
func (j *Journal) Summary(ctx context.Context, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = 4000
	}
	s, err := j.Read(ctx, maxLen)
	if err != nil {
		return "", err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "(no sessions recorded yet)", nil
	}
	return s, nil
}
