// Package questions holds the coding-question bank used by the technical agent.
// A default set ships embedded in the binary; an external JSON file can replace
// it. Records that fail validation are skipped, never fatal.
package questions

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

//go:embed data/questions.json
var defaultData []byte

// Bank is an in-memory index of practice questions. Safe for concurrent use.
type Bank struct {
	mu   sync.RWMutex
	path string
	all  []models.Question
	byID map[string]models.Question
}

// Load builds a bank from the JSON file at path, or from the embedded default
// set when path is empty. An unreadable or invalid file falls back to the
// embedded set rather than failing startup.
func Load(path string) (*Bank, error) {
	b := &Bank{path: path}
	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// Reload re-reads the bank from its configured source.
func (b *Bank) Reload() error {
	data := defaultData
	if b.path != "" {
		raw, err := os.ReadFile(b.path)
		switch {
		case err != nil:
			slog.Warn("questions file unreadable, using embedded bank", "path", b.path, "error", err)
		case !json.Valid(raw):
			slog.Warn("questions file is not valid JSON, using embedded bank", "path", b.path)
		default:
			data = raw
		}
	}
	qs, err := decode(data)
	if err != nil {
		return fmt.Errorf("decode question bank: %w", err)
	}
	all, byID := validate(qs)
	b.mu.Lock()
	b.all = all
	b.byID = byID
	b.mu.Unlock()
	slog.Info("question bank loaded", "count", len(all))
	return nil
}

// decode accepts both a bare array and an object with a "questions" key.
func decode(data []byte) ([]models.Question, error) {
	var doc struct {
		Questions []models.Question `json:"questions"`
	}
	if err := json.Unmarshal(data, &doc); err == nil && doc.Questions != nil {
		return doc.Questions, nil
	}
	var list []models.Question
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// validate drops records missing required fields, coerces unknown difficulties
// to medium, and fills nil slices so callers never see null JSON.
func validate(qs []models.Question) ([]models.Question, map[string]models.Question) {
	valid := make([]models.Question, 0, len(qs))
	byID := make(map[string]models.Question, len(qs))
	for i, q := range qs {
		if q.ID == "" || q.Title == "" || q.Difficulty == "" || q.Description == "" {
			slog.Warn("question missing required fields, skipping", "index", i, "id", q.ID)
			continue
		}
		if !models.ValidDifficulty(q.Difficulty) {
			slog.Warn("question has invalid difficulty, defaulting to medium", "id", q.ID, "difficulty", q.Difficulty)
			q.Difficulty = models.DifficultyMedium
		}
		if q.Tags == nil {
			q.Tags = []string{}
		}
		if q.Examples == nil {
			q.Examples = []models.QuestionExample{}
		}
		if q.TestCases == nil {
			q.TestCases = []models.TestCase{}
		}
		if q.Hints == nil {
			q.Hints = []string{}
		}
		if _, dup := byID[q.ID]; dup {
			slog.Warn("duplicate question id, overwriting", "id", q.ID)
			for j := range valid {
				if valid[j].ID == q.ID {
					valid = append(valid[:j], valid[j+1:]...)
					break
				}
			}
		}
		byID[q.ID] = q
		valid = append(valid, q)
	}
	return valid, byID
}

// ByID returns the question with the given id, or nil when unknown.
func (b *Bank) ByID(id string) *models.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if q, ok := b.byID[id]; ok {
		return &q
	}
	return nil
}

// ByDifficulty returns all questions at the given difficulty. An unknown
// difficulty falls back to medium.
func (b *Bank) ByDifficulty(difficulty string) []models.Question {
	if !models.ValidDifficulty(difficulty) {
		slog.Warn("invalid difficulty, defaulting to medium", "difficulty", difficulty)
		difficulty = models.DifficultyMedium
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []models.Question
	for _, q := range b.all {
		if q.Difficulty == difficulty {
			out = append(out, q)
		}
	}
	return out
}

// FilterByTags returns questions carrying at least one of the given tags,
// case-insensitively. No tags means every question.
func (b *Bank) FilterByTags(tags []string) []models.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(tags) == 0 {
		return append([]models.Question(nil), b.all...)
	}
	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[strings.ToLower(t)] = struct{}{}
	}
	var out []models.Question
	for _, q := range b.all {
		for _, t := range q.Tags {
			if _, ok := want[strings.ToLower(t)]; ok {
				out = append(out, q)
				break
			}
		}
	}
	return out
}

// ByDifficultyAndTags applies both filters.
func (b *Bank) ByDifficultyAndTags(difficulty string, tags []string) []models.Question {
	qs := b.ByDifficulty(difficulty)
	if len(tags) == 0 {
		return qs
	}
	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[strings.ToLower(t)] = struct{}{}
	}
	var out []models.Question
	for _, q := range qs {
		for _, t := range q.Tags {
			if _, ok := want[strings.ToLower(t)]; ok {
				out = append(out, q)
				break
			}
		}
	}
	return out
}

// Search matches the query against titles and descriptions, case-insensitively.
// An empty query matches nothing.
func (b *Bank) Search(query string) []models.Question {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []models.Question
	for _, cand := range b.all {
		if strings.Contains(strings.ToLower(cand.Title), q) || strings.Contains(strings.ToLower(cand.Description), q) {
			out = append(out, cand)
		}
	}
	return out
}

// All returns a copy of every question in the bank.
func (b *Bank) All() []models.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.Question(nil), b.all...)
}

// Count returns the number of questions in the bank.
func (b *Bank) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.all)
}
