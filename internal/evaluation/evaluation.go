// Package evaluation scores code submissions and tracks practice progress
// over time. Scoring is deterministic: a weighted blend of test correctness,
// readability heuristics, and measured execution time, so results are
// comparable across sessions without an LLM in the loop.
package evaluation

import (
	"fmt"
	"strings"
	"time"

	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

// Weights for the overall score.
const (
	weightCorrectness = 0.5
	weightQuality     = 0.3
	weightEfficiency  = 0.2
)

// Evaluation is the full scorecard for one code submission.
type Evaluation struct {
	Correctness     float64   `json:"correctness"`
	CodeQuality     float64   `json:"code_quality"`
	Efficiency      float64   `json:"efficiency"`
	Overall         float64   `json:"overall"`
	TestsPassed     int       `json:"tests_passed"`
	TotalTests      int       `json:"total_tests"`
	Recommendations []string  `json:"recommendations"`
	EvaluatedAt     time.Time `json:"evaluated_at"`
}

// Evaluate scores a submission from its execution outcome. question and exec
// may be nil; missing data scores as zero tests and instant execution.
func Evaluate(code string, question *models.Question, exec *models.ExecutionResult) Evaluation {
	testsPassed, totalTests := 0, 0
	if exec != nil {
		testsPassed, totalTests = exec.TestsPassed, exec.TotalTests
	}
	correctness := 0.0
	if totalTests > 0 {
		correctness = float64(testsPassed) / float64(totalTests)
	}
	quality := codeQuality(code)
	efficiency := efficiencyScore(exec)

	return Evaluation{
		Correctness:     correctness,
		CodeQuality:     quality,
		Efficiency:      efficiency,
		Overall:         correctness*weightCorrectness + quality*weightQuality + efficiency*weightEfficiency,
		TestsPassed:     testsPassed,
		TotalTests:      totalTests,
		Recommendations: recommendations(correctness, quality, efficiency, question),
		EvaluatedAt:     time.Now().UTC(),
	}
}

// codeQuality applies rough readability heuristics, deducting 0.1 per issue:
// a function body longer than 50 lines, comment coverage under 10%, or more
// than 30% single-letter identifiers.
func codeQuality(code string) float64 {
	lines := strings.Split(code, "\n")
	issues := 0

	functionLines := 0
	inFunction := false
	longFunction := false
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if isFunctionStart(stripped) {
			if inFunction && functionLines > 50 {
				longFunction = true
			}
			functionLines = 0
			inFunction = true
		} else if inFunction {
			functionLines++
		}
	}
	if longFunction || (inFunction && functionLines > 50) {
		issues++
	}

	comments := 0
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "#") || strings.HasPrefix(stripped, "//") ||
			strings.Contains(line, `"""`) || strings.Contains(line, "'''") {
			comments++
		}
	}
	if comments*10 < len(lines) {
		issues++
	}

	idents := identifiers(code)
	short := 0
	for _, id := range idents {
		if len(id) < 2 {
			short++
		}
	}
	if len(idents) > 0 && short*10 > len(idents)*3 {
		issues++
	}

	score := 1.0 - float64(issues)*0.1
	return clamp01(score)
}

func isFunctionStart(stripped string) bool {
	for _, prefix := range []string{"def ", "async def ", "func ", "function "} {
		if strings.HasPrefix(stripped, prefix) {
			return true
		}
	}
	return false
}

func identifiers(code string) []string {
	return strings.FieldsFunc(strings.ToLower(code), func(r rune) bool {
		return !(r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
}

// efficiencyScore grades the average per-test execution time. No timing data
// counts as instant.
func efficiencyScore(exec *models.ExecutionResult) float64 {
	avg := 0.0
	if exec != nil {
		sum, n := 0.0, 0
		for _, r := range exec.TestResults {
			if r.ExecutionTime > 0 {
				sum += r.ExecutionTime
				n++
			}
		}
		if n > 0 {
			avg = sum / float64(n)
		}
	}
	switch {
	case avg < 0.1:
		return 1.0
	case avg < 1.0:
		return 0.8
	case avg < 5.0:
		return 0.6
	default:
		return 0.4
	}
}

func recommendations(correctness, quality, efficiency float64, question *models.Question) []string {
	var recs []string
	if correctness < 1.0 {
		recs = append(recs, "Focus on passing all test cases first")
		if correctness < 0.5 {
			recs = append(recs, "Review the problem statement and examples carefully")
		}
	}
	if quality < 0.7 {
		recs = append(recs,
			"Improve code readability with better variable names",
			"Add comments to explain complex logic")
	}
	if efficiency < 0.7 {
		recs = append(recs, "Consider optimizing your algorithm for better performance")
		if question != nil && question.TimeComplexity != "" {
			recs = append(recs, fmt.Sprintf("Target complexity: %s", question.TimeComplexity))
		}
	}
	if len(recs) == 0 {
		recs = append(recs,
			"Great work! Your solution is correct and well-written",
			"Consider edge cases and error handling for production code")
	}
	return recs
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ProgressReport summarizes a user's scores across sessions.
type ProgressReport struct {
	UserID          string    `json:"user_id"`
	TotalSessions   int       `json:"total_sessions"`
	AverageScore    float64   `json:"average_score"`
	Trend           string    `json:"trend"`
	ImprovementRate float64   `json:"improvement_rate"`
	Scores          []float64 `json:"scores,omitempty"`
}

// Trend values reported by Progress.
const (
	TrendNoData       = "no_data"
	TrendInsufficient = "insufficient_data"
	TrendImproving    = "improving"
	TrendDeclining    = "declining"
	TrendStable       = "stable"
)

// Progress computes the trend across a user's overall scores, oldest first.
// The trend compares the mean of the last three scores against the mean of
// everything before them, with a 0.1 dead band.
func Progress(userID string, scores []float64) ProgressReport {
	if len(scores) == 0 {
		return ProgressReport{UserID: userID, Trend: TrendNoData}
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	report := ProgressReport{
		UserID:        userID,
		TotalSessions: len(scores),
		AverageScore:  sum / float64(len(scores)),
		Scores:        scores,
	}

	if len(scores) < 2 {
		report.Trend = TrendInsufficient
		return report
	}

	recentN := len(scores)
	if recentN > 3 {
		recentN = 3
	}
	recent := mean(scores[len(scores)-recentN:])
	earlier := scores[0]
	if len(scores) > 3 {
		earlier = mean(scores[:len(scores)-3])
	}
	switch {
	case recent > earlier+0.1:
		report.Trend = TrendImproving
	case recent < earlier-0.1:
		report.Trend = TrendDeclining
	default:
		report.Trend = TrendStable
	}
	report.ImprovementRate = scores[len(scores)-1] - scores[0]
	return report
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// SessionReport aggregates all evaluations from one session.
type SessionReport struct {
	SessionID        string         `json:"session_id"`
	TotalSubmissions int            `json:"total_submissions"`
	AverageScores    *AverageScores `json:"average_scores,omitempty"`
	Recommendations  []string       `json:"recommendations,omitempty"`
	Message          string         `json:"message,omitempty"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// AverageScores holds per-dimension means across a session's submissions.
type AverageScores struct {
	Correctness float64 `json:"correctness"`
	CodeQuality float64 `json:"code_quality"`
	Efficiency  float64 `json:"efficiency"`
	Overall     float64 `json:"overall"`
}

// Report builds a session-level summary. Recommendations are deduplicated
// preserving first appearance.
func Report(sessionID string, evals []Evaluation) SessionReport {
	report := SessionReport{
		SessionID:   sessionID,
		GeneratedAt: time.Now().UTC(),
	}
	if len(evals) == 0 {
		report.Message = "No evaluations available"
		return report
	}

	avg := &AverageScores{}
	seen := make(map[string]struct{})
	for _, e := range evals {
		avg.Correctness += e.Correctness
		avg.CodeQuality += e.CodeQuality
		avg.Efficiency += e.Efficiency
		avg.Overall += e.Overall
		for _, rec := range e.Recommendations {
			if _, ok := seen[rec]; ok {
				continue
			}
			seen[rec] = struct{}{}
			report.Recommendations = append(report.Recommendations, rec)
		}
	}
	n := float64(len(evals))
	avg.Correctness /= n
	avg.CodeQuality /= n
	avg.Efficiency /= n
	avg.Overall /= n

	report.TotalSubmissions = len(evals)
	report.AverageScores = avg
	return report
}
