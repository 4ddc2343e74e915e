package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// historyRecord is one line of a user's history.jsonl.
type historyRecord struct {
	SessionID   string  `json:"session_id"`
	Attempted   int     `json:"questions_attempted"`
	Solved      int     `json:"questions_solved"`
	SuccessRate float64 `json:"success_rate"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

// History stores companion session summaries per user and serves success
// rates back to the agents. Records land in <userDir>/history.jsonl, one
// JSON object per line, oldest first.
type History struct {
	Home string

	mu sync.Mutex
}

// RecordSummary appends the summary to the user's history file.
func (h *History) RecordSummary(sessionID, userID string, summary map[string]any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	dir, err := EnsureUserDir(h.Home, userID)
	if err != nil {
		return fmt.Errorf("create user dir: %w", err)
	}
	rec := historyRecord{
		SessionID:   sessionID,
		Attempted:   intValue(summary["questions_attempted"]),
		Solved:      intValue(summary["questions_solved"]),
		SuccessRate: floatValue(summary["success_rate"]),
		Timestamp:   stringValue(summary["timestamp"]),
	}
	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(HistoryPath(dir), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// RecentSuccessRates returns up to limit success rates, newest first.
// A user with no history yields nil.
func (h *History) RecentSuccessRates(userID string, limit int) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	recs, err := h.load(userID)
	if err != nil || len(recs) == 0 {
		return nil
	}
	if limit <= 0 || limit > len(recs) {
		limit = len(recs)
	}
	rates := make([]float64, 0, limit)
	for i := len(recs) - 1; i >= 0 && len(rates) < limit; i-- {
		rates = append(rates, recs[i].SuccessRate)
	}
	return rates
}

// Scores returns every recorded success rate, oldest first, for trend
// analysis across sessions.
func (h *History) Scores(userID string) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	recs, err := h.load(userID)
	if err != nil {
		return nil
	}
	scores := make([]float64, 0, len(recs))
	for _, r := range recs {
		scores = append(scores, r.SuccessRate)
	}
	return scores
}

// Sessions returns the number of recorded sessions for the user.
func (h *History) Sessions(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	recs, _ := h.load(userID)
	return len(recs)
}

func (h *History) load(userID string) ([]historyRecord, error) {
	data, err := os.ReadFile(HistoryPath(UserDir(h.Home, userID)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var recs []historyRecord
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec historyRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func floatValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
