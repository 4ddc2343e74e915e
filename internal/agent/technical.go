package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/evaluation"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/llm"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/questions"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/session"
	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

// CodeRunner executes a submission against a question's test cases.
type CodeRunner interface {
	Run(ctx context.Context, code, language string, tests []models.TestCase) (*models.ExecutionResult, error)
}

// Technical selects practice questions and evaluates code submissions.
type Technical struct {
	LLM    llm.Client
	Bank   *questions.Bank
	Runner CodeRunner // nil disables test execution
}

// NewTechnical builds the technical agent. client and runner may be nil.
func NewTechnical(client llm.Client, bank *questions.Bank, runner CodeRunner) *Technical {
	return &Technical{LLM: client, Bank: bank, Runner: runner}
}

func (a *Technical) Name() string { return models.AgentTechnical }

// ValidateTechnicalInput rejects unknown modes. Callers at the API boundary
// use it so an invalid request never reaches Execute.
func ValidateTechnicalInput(in models.TechnicalInput) error {
	switch in.Mode {
	case models.ModeSelectQuestions, models.ModeEvaluateCode:
		return nil
	case "":
		return &session.ValidationError{Field: "mode", Reason: "required"}
	default:
		return &session.ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", in.Mode)}
	}
}

// TechnicalContext packs a decoded input into the generic agent Context input.
func TechnicalContext(in models.TechnicalInput) map[string]any {
	m := map[string]any{"mode": in.Mode}
	if in.Difficulty != "" {
		m["difficulty"] = in.Difficulty
	}
	if in.Count > 0 {
		m["count"] = in.Count
	}
	if in.QuestionID != "" {
		m["question_id"] = in.QuestionID
	}
	if in.Code != "" {
		m["code"] = in.Code
	}
	if in.Language != "" {
		m["language"] = in.Language
	}
	return m
}

func technicalInputFromContext(c Context) models.TechnicalInput {
	in := models.TechnicalInput{
		Mode:       stringInput(c.Input, "mode"),
		Difficulty: stringInput(c.Input, "difficulty"),
		QuestionID: stringInput(c.Input, "question_id"),
		Language:   stringInput(c.Input, "language"),
	}
	if code, ok := c.Input["code"].(string); ok {
		in.Code = code
	}
	switch n := c.Input["count"].(type) {
	case int:
		in.Count = n
	case float64:
		in.Count = int(n)
	}
	return in
}

// Execute dispatches on the decoded mode.
func (a *Technical) Execute(ctx context.Context, c Context) (Result, error) {
	in := technicalInputFromContext(c)
	if err := ValidateTechnicalInput(in); err != nil {
		return failure("validation error: %v", err), nil
	}
	switch in.Mode {
	case models.ModeSelectQuestions:
		return a.selectQuestions(in), nil
	default:
		return a.evaluateCode(ctx, in), nil
	}
}

func (a *Technical) selectQuestions(in models.TechnicalInput) Result {
	difficulty := in.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}
	count := in.Count
	if count <= 0 {
		count = models.DefaultQuestionCount
	}
	qs := a.Bank.ByDifficulty(difficulty)
	if len(qs) > count {
		qs = qs[:count]
	}
	return Result{
		Success: true,
		Output: map[string]any{
			"questions":  qs,
			"count":      len(qs),
			"difficulty": difficulty,
		},
	}
}

func (a *Technical) evaluateCode(ctx context.Context, in models.TechnicalInput) Result {
	if in.QuestionID == "" {
		return failure("validation error: question_id is required")
	}
	if strings.TrimSpace(in.Code) == "" {
		return failure("validation error: code is required")
	}
	language := in.Language
	if language == "" {
		language = "python"
	}

	question := a.Bank.ByID(in.QuestionID)
	var tests []models.TestCase
	if question != nil {
		tests = question.TestCases
	}

	testsPassed := 0
	var testResults []models.TestRunResult
	if a.Runner != nil && len(tests) > 0 {
		exec, err := a.Runner.Run(ctx, in.Code, language, tests)
		if err != nil {
			slog.Warn("code execution failed", "question_id", in.QuestionID, "error", err)
			testResults = []models.TestRunResult{{Error: err.Error()}}
		} else {
			testsPassed = exec.TestsPassed
			testResults = exec.TestResults
		}
	}
	if testResults == nil {
		testResults = []models.TestRunResult{}
	}

	status := models.EvalStatusPartial
	if testsPassed == len(tests) {
		status = models.EvalStatusSuccess
	}
	ev := evaluation.Evaluate(in.Code, question, &models.ExecutionResult{
		TestsPassed: testsPassed,
		TotalTests:  len(tests),
		TestResults: testResults,
	})

	complexity := map[string]any{"time": "Unknown", "space": "Unknown"}
	if question != nil {
		if question.TimeComplexity != "" {
			complexity["time"] = question.TimeComplexity
		}
		if question.SpaceComplexity != "" {
			complexity["space"] = question.SpaceComplexity
		}
	}

	return Result{
		Success: true,
		Output: map[string]any{
			"status":              status,
			"score":               ev.Overall,
			"tests_passed":        testsPassed,
			"total_tests":         len(tests),
			"test_results":        testResults,
			"feedback":            a.feedback(ctx, in, language, testsPassed, len(tests)),
			"recommendations":     ev.Recommendations,
			"complexity_analysis": complexity,
		},
	}
}

func (a *Technical) feedback(ctx context.Context, in models.TechnicalInput, language string, passed, total int) string {
	if a.LLM == nil {
		return fmt.Sprintf("Evaluation completed. %d/%d tests passed.", passed, total)
	}
	prompt := fmt.Sprintf("Evaluate this code submission:\n\n"+
		"Question ID: %s\nLanguage: %s\nCode:\n```%s\n%s\n```\n\n"+
		"Test Results: %d/%d tests passed\n\n"+
		"Provide:\n"+
		"1. Feedback on code correctness\n"+
		"2. Time and space complexity analysis\n"+
		"3. Code quality assessment\n"+
		"4. Suggestions for improvement\n\n"+
		"Be constructive and encouraging.",
		in.QuestionID, language, language, in.Code, passed, total)
	out, err := a.LLM.Complete(ctx, llm.Request{Prompt: prompt})
	if err != nil {
		slog.Warn("feedback completion failed", "question_id", in.QuestionID, "error", err)
		return fmt.Sprintf("Evaluation completed. %d/%d tests passed. Error generating detailed feedback: %v", passed, total, err)
	}
	return out
}
