package agent

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/llm"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/session"
	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

// History provides a user's practice record across sessions. Implementations
// return success rates newest first.
type History interface {
	RecentSuccessRates(userID string, limit int) []float64
	RecordSummary(sessionID, userID string, summary map[string]any) error
}

// Companion generates encouragement, tips, summaries and next-step
// recommendations from accumulated session data.
type Companion struct {
	LLM     llm.Client
	History History // nil disables history context and summary storage
}

// NewCompanion builds the companion agent. client and history may be nil.
func NewCompanion(client llm.Client, history History) *Companion {
	return &Companion{LLM: client, History: history}
}

func (a *Companion) Name() string { return models.AgentCompanion }

// ValidateCompanionMode rejects unknown modes. Empty means "all".
func ValidateCompanionMode(mode string) error {
	switch mode {
	case "", models.CompanionEncouragement, models.CompanionTips, models.CompanionSummary,
		models.CompanionRecommendations, models.CompanionAll:
		return nil
	}
	return &session.ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown companion mode %q", mode)}
}

// Execute builds the sections the requested mode asks for. Each section
// degrades to canned text keyed on the success rate when no LLM is available.
func (a *Companion) Execute(ctx context.Context, c Context) (Result, error) {
	if c.SessionID == "" {
		return failure("validation error: session_id is required"), nil
	}
	if c.UserID == "" {
		return failure("validation error: user_id is required"), nil
	}
	mode := stringInput(c.Input, "mode")
	if mode == "" {
		mode = models.CompanionAll
	}
	data := sessionDataFrom(c.Input)
	rates := a.recentRates(c.UserID)

	output := map[string]any{
		"session_id": c.SessionID,
		"user_id":    c.UserID,
		"mode":       mode,
	}
	if mode == models.CompanionEncouragement || mode == models.CompanionAll {
		output["encouragement"] = a.encouragement(ctx, data, rates)
	}
	if mode == models.CompanionTips || mode == models.CompanionAll {
		output["tips"] = a.tips(ctx, data)
	}
	if mode == models.CompanionSummary || mode == models.CompanionAll {
		summary := a.summary(c.SessionID, c.UserID, data)
		output["summary"] = summary
		if a.History != nil {
			if err := a.History.RecordSummary(c.SessionID, c.UserID, summary); err != nil {
				slog.Warn("failed to store session summary", "session_id", c.SessionID, "error", err)
			}
		}
	}
	if mode == models.CompanionRecommendations || mode == models.CompanionAll {
		output["recommendations"] = a.recommendations(ctx, data, rates)
	}
	return Result{Success: true, Output: output}, nil
}

func (a *Companion) recentRates(userID string) []float64 {
	if a.History == nil {
		return nil
	}
	return a.History.RecentSuccessRates(userID, 5)
}

// sessionData is the slice of accumulated session state the companion reads.
type sessionData struct {
	Attempted   int
	Solved      int
	CreatedAt   string
	CompletedAt string
	UpdatedAt   string
	Skills      map[string]any
}

func (d sessionData) successRate() float64 {
	if d.Attempted == 0 {
		return 0
	}
	return float64(d.Solved) / float64(d.Attempted)
}

func sessionDataFrom(input map[string]any) sessionData {
	raw, _ := input["session_data"].(map[string]any)
	d := sessionData{
		Attempted:   intValue(raw["questions_attempted"]),
		Solved:      intValue(raw["questions_solved"]),
		CreatedAt:   stringValue(raw["created_at"]),
		CompletedAt: stringValue(raw["completed_at"]),
		UpdatedAt:   stringValue(raw["updated_at"]),
	}
	d.Skills, _ = raw["skills_progress"].(map[string]any)
	return d
}

func (a *Companion) encouragement(ctx context.Context, d sessionData, rates []float64) string {
	rate := d.successRate()
	if a.LLM == nil {
		return fallbackEncouragement(rate)
	}

	improvement := ""
	if len(rates) > 0 {
		prev := rates[0]
		if rate > prev {
			improvement = fmt.Sprintf("Great improvement! Your success rate increased from %.1f%% to %.1f%%.", prev*100, rate*100)
		} else if rate == prev && rate > 0 {
			improvement = "You're maintaining consistent performance. Keep it up!"
		}
	}
	historySummary := ""
	if len(rates) > 0 {
		historySummary = fmt.Sprintf("You've completed %d previous practice sessions. ", len(rates))
	}
	prompt := fmt.Sprintf(`You are a supportive and encouraging interview preparation coach. Generate a personalized encouragement message.

User Performance:
- Questions Attempted: %d
- Questions Solved: %d
- Success Rate: %.1f%%
%s

%s

Generate a brief (2-3 sentences), warm, and motivating message that:
1. Acknowledges their effort and progress
2. Provides specific positive feedback
3. Offers constructive encouragement
4. Is personalized and genuine

Keep it concise and uplifting.`, d.Attempted, d.Solved, rate*100, improvement, historySummary)

	out, err := a.LLM.Complete(ctx, llm.Request{
		System: "You are a supportive interview coach who provides personalized encouragement and motivation.",
		Prompt: prompt,
	})
	if err != nil {
		slog.Warn("encouragement completion failed", "error", err)
		return fallbackEncouragement(rate)
	}
	return out
}

func fallbackEncouragement(rate float64) string {
	switch {
	case rate >= 0.8:
		return "Excellent work! You're performing very well. Keep practicing to maintain this level!"
	case rate >= 0.5:
		return "Good progress! You're on the right track. Continue practicing to improve further!"
	default:
		return "Keep going! Every practice session helps you improve. Review the solutions and try again!"
	}
}

func (a *Companion) tips(ctx context.Context, d sessionData) []string {
	if a.LLM == nil {
		return fallbackTips()
	}

	areas := "General practice"
	if weak := weakSkills(d.Skills); len(weak) > 0 {
		areas = strings.Join(weak, ", ")
	}
	prompt := fmt.Sprintf(`You are an expert interview coach. Generate 3-5 specific, actionable tips for improvement.

Performance Analysis:
- Success Rate: %.1f%%
- Questions Solved: %d/%d
- Areas needing improvement: %s

Generate tips that are:
1. Specific and actionable
2. Relevant to their current performance level
3. Focused on areas that need improvement
4. Encouraging and constructive

Return only the tips as a numbered list, one per line.`, d.successRate()*100, d.Solved, d.Attempted, areas)

	out, err := a.LLM.Complete(ctx, llm.Request{
		System: "You are an expert interview coach providing actionable improvement tips.",
		Prompt: prompt,
	})
	if err != nil {
		slog.Warn("tips completion failed", "error", err)
		return fallbackTips()
	}
	tips := parseList(out)
	if len(tips) == 0 {
		tips = []string{
			"Practice more problems in your weak areas",
			"Review solutions and understand different approaches",
			"Focus on time and space complexity analysis",
			"Practice explaining your thought process out loud",
		}
	}
	if len(tips) > 5 {
		tips = tips[:5]
	}
	return tips
}

func fallbackTips() []string {
	return []string{
		"Continue practicing regularly to build confidence",
		"Review solutions after attempting problems",
		"Focus on understanding patterns and approaches",
		"Practice explaining your solutions clearly",
	}
}

// weakSkills lists skills whose proficiency sits below 0.7, sorted for
// stable prompts.
func weakSkills(skills map[string]any) []string {
	var weak []string
	for skill, v := range skills {
		data, ok := v.(map[string]any)
		if !ok {
			continue
		}
		proficiency := 1.0
		switch p := data["proficiency"].(type) {
		case float64:
			proficiency = p
		case int:
			proficiency = float64(p)
		}
		if proficiency < 0.7 {
			weak = append(weak, skill)
		}
	}
	sort.Strings(weak)
	return weak
}

func (a *Companion) summary(sessionID, userID string, d sessionData) map[string]any {
	rate := d.successRate()

	duration := 0.0
	if d.CreatedAt != "" && d.CompletedAt != "" {
		start, errStart := time.Parse(time.RFC3339, d.CreatedAt)
		end, errEnd := time.Parse(time.RFC3339, d.CompletedAt)
		if errStart == nil && errEnd == nil {
			duration = end.Sub(start).Minutes()
		}
	}
	timestamp := d.CompletedAt
	if timestamp == "" {
		timestamp = d.UpdatedAt
	}
	skills := make([]string, 0, len(d.Skills))
	for skill := range d.Skills {
		skills = append(skills, skill)
	}
	sort.Strings(skills)

	highlights := []string{}
	switch {
	case rate >= 0.9:
		highlights = append(highlights, "Outstanding performance!")
	case rate >= 0.7:
		highlights = append(highlights, "Strong performance")
	case d.Attempted > 0:
		highlights = append(highlights, "Good effort, keep practicing")
	}

	return map[string]any{
		"session_id":          sessionID,
		"user_id":             userID,
		"questions_attempted": d.Attempted,
		"questions_solved":    d.Solved,
		"success_rate":        rate,
		"duration_minutes":    math.Round(duration*10) / 10,
		"score":               rate * 100,
		"timestamp":           timestamp,
		"skills_practiced":    skills,
		"highlights":          highlights,
	}
}

func (a *Companion) recommendations(ctx context.Context, d sessionData, rates []float64) []string {
	rate := d.successRate()
	if a.LLM == nil {
		return thresholdRecommendations(rate)
	}

	trend := "stable"
	if len(rates) >= 2 {
		if rate > rates[0]+0.1 {
			trend = "improving"
		} else if rate < rates[0]-0.1 {
			trend = "declining"
		}
	}
	prompt := fmt.Sprintf(`You are an interview coach. Generate 3-4 specific recommendations for the user's next practice session.

Current Performance:
- Success Rate: %.1f%%
- Questions Solved: %d/%d
- Performance Trend: %s

Generate recommendations that:
1. Are specific and actionable
2. Build on current progress
3. Address areas for improvement
4. Are encouraging and realistic

Return only the recommendations as a numbered list.`, rate*100, d.Solved, d.Attempted, trend)

	out, err := a.LLM.Complete(ctx, llm.Request{
		System: "You are an expert interview coach providing personalized recommendations.",
		Prompt: prompt,
	})
	if err != nil {
		slog.Warn("recommendations completion failed", "error", err)
		return []string{
			"Continue practicing regularly",
			"Review solutions and understand patterns",
			"Focus on your weak areas",
		}
	}
	recs := parseList(out)
	if len(recs) == 0 {
		recs = thresholdRecommendations(rate)
	}
	if len(recs) > 4 {
		recs = recs[:4]
	}
	return recs
}

func thresholdRecommendations(rate float64) []string {
	switch {
	case rate >= 0.8:
		return []string{
			"Try more challenging problems to push your limits",
			"Practice system design questions",
			"Focus on optimizing your solutions",
		}
	case rate >= 0.5:
		return []string{
			"Continue practicing similar difficulty problems",
			"Review solutions and understand different approaches",
			"Focus on time complexity optimization",
		}
	default:
		return []string{
			"Start with easier problems to build confidence",
			"Review fundamental data structures and algorithms",
			"Practice explaining your approach step by step",
		}
	}
}

// parseList extracts items from a numbered or bulleted list, one per line.
func parseList(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		first := line[0]
		if !(first >= '0' && first <= '9') && first != '-' && first != '*' {
			continue
		}
		item := line
		if i := strings.Index(line, "."); i >= 0 {
			item = line[i+1:]
		} else {
			item = strings.TrimLeft(line, "-* ")
		}
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
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

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
