package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/config"
	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

func newInterviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interview",
		Short: "Run interview-preparation workflows",
	}
	cmd.AddCommand(newInterviewRunCmd())
	cmd.AddCommand(newInterviewResearchCmd())
	cmd.AddCommand(newInterviewEvaluateCmd())
	return cmd
}

func newInterviewRunCmd() *cobra.Command {
	var (
		user          string
		sessionID     string
		company       string
		jobDesc       string
		jobFile       string
		mode          string
		difficulty    string
		count         int
		questionID    string
		code          string
		codeFile      string
		language      string
		companionMode string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full workflow: research, technical, companion",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			jd, err := resolveText(jobDesc, jobFile)
			if err != nil {
				return err
			}

			req := models.RunRequest{
				UserID:         user,
				SessionID:      sessionID,
				CompanyName:    company,
				JobDescription: jd,
				CompanionMode:  companionMode,
			}
			if mode != "" {
				submission, err := resolveText(code, codeFile)
				if err != nil {
					return err
				}
				req.Technical = &models.TechnicalInput{
					Mode:       mode,
					Difficulty: difficulty,
					Count:      count,
					QuestionID: questionID,
					Code:       submission,
					Language:   language,
				}
			}

			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}
			result, err := api.RunInterview(cmd.Context(), req)
			if err != nil {
				return err
			}
			printRunResult(cmd, result)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID")
	cmd.Flags().StringVar(&sessionID, "session", "", "Existing session ID (default: create a new session)")
	cmd.Flags().StringVar(&company, "company", "", "Target company (default: from your profile)")
	cmd.Flags().StringVar(&jobDesc, "job-description", "", "Job description text")
	cmd.Flags().StringVar(&jobFile, "job-file", "", "Read the job description from this file")
	cmd.Flags().StringVar(&mode, "mode", "", "Technical mode: select_questions or evaluate_code (empty skips the technical phase)")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "Question difficulty: easy, medium, or hard")
	cmd.Flags().IntVar(&count, "count", 0, "How many questions to select")
	cmd.Flags().StringVar(&questionID, "question", "", "Question ID (for evaluate_code)")
	cmd.Flags().StringVar(&code, "code", "", "Code submission (for evaluate_code)")
	cmd.Flags().StringVar(&codeFile, "code-file", "", "Read the code submission from this file")
	cmd.Flags().StringVar(&language, "language", "", "Submission language (default python)")
	cmd.Flags().StringVar(&companionMode, "companion-mode", "", "Companion mode: encouragement, tips, summary, recommendations, or all")
	return cmd
}

// resolveText returns the file contents when path is set, else the inline
// text. "-" reads stdin.
func resolveText(inline, path string) (string, error) {
	if path == "" {
		return inline, nil
	}
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func printRunResult(cmd *cobra.Command, result *models.RunResult) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Session: %s\n", result.SessionID)
	printPhase(out, models.AgentResearch, result.Research)
	printPhase(out, models.AgentTechnical, result.Technical)
	printPhase(out, models.AgentCompanion, result.Companion)

	if result.Technical != nil && result.Technical.Success {
		printQuestionList(out, result.Technical.Output)
	}
	if result.Companion != nil && result.Companion.Success {
		if enc, ok := result.Companion.Output["encouragement"].(string); ok && enc != "" {
			_, _ = fmt.Fprintf(out, "\n%s\n", enc)
		}
	}

	if result.Success {
		_, _ = fmt.Fprintln(out, "\nAll phases succeeded.")
	} else {
		_, _ = fmt.Fprintf(out, "\nWorkflow finished with failures: %s\n", result.Error)
	}
}

func printPhase(out io.Writer, name string, res *models.AgentResult) {
	switch {
	case res == nil:
		_, _ = fmt.Fprintf(out, "  %s: skipped\n", name)
	case res.Success:
		_, _ = fmt.Fprintf(out, "  %s: ok (%dms)\n", name, res.ExecutionTimeMS)
	default:
		_, _ = fmt.Fprintf(out, "  %s: FAILED: %s\n", name, res.Error)
	}
}

// printQuestionList renders the select_questions output. The payload arrives
// as decoded JSON, so questions are generic maps.
func printQuestionList(out io.Writer, output map[string]any) {
	raw, ok := output["questions"].([]any)
	if !ok || len(raw) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out, "\nQuestions:")
	for _, item := range raw {
		q, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := q["id"].(string)
		title, _ := q["title"].(string)
		difficulty, _ := q["difficulty"].(string)
		_, _ = fmt.Fprintf(out, "  - [%s] %s (%s)\n", id, title, difficulty)
	}
}

func newInterviewResearchCmd() *cobra.Command {
	var (
		sessionID string
		user      string
		company   string
		jobDesc   string
		jobFile   string
	)
	cmd := &cobra.Command{
		Use:   "research",
		Short: "Run only the research phase against an existing session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionID == "" {
				return errors.New("--session is required")
			}
			jd, err := resolveText(jobDesc, jobFile)
			if err != nil {
				return err
			}

			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}
			res, err := api.RunResearch(cmd.Context(), sessionID, user, company, jd)
			if err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("research failed: %s", res.Error)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Research completed in %dms\n", res.ExecutionTimeMS)
			if overview, ok := res.Output["company_overview"].(string); ok && overview != "" {
				_, _ = fmt.Fprintf(out, "\n%s\n", overview)
			}
			if tips, ok := res.Output["preparation_tips"].([]any); ok && len(tips) > 0 {
				_, _ = fmt.Fprintln(out, "\nPreparation tips:")
				for _, t := range tips {
					_, _ = fmt.Fprintf(out, "  - %v\n", t)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID")
	cmd.Flags().StringVar(&user, "user", "", "User ID")
	cmd.Flags().StringVar(&company, "company", "", "Target company")
	cmd.Flags().StringVar(&jobDesc, "job-description", "", "Job description text")
	cmd.Flags().StringVar(&jobFile, "job-file", "", "Read the job description from this file")
	return cmd
}

func newInterviewEvaluateCmd() *cobra.Command {
	var (
		sessionID  string
		user       string
		questionID string
		code       string
		codeFile   string
		language   string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a code submission against an existing session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionID == "" {
				return errors.New("--session is required")
			}
			if questionID == "" {
				return errors.New("--question is required")
			}
			submission, err := resolveText(code, codeFile)
			if err != nil {
				return err
			}
			if strings.TrimSpace(submission) == "" {
				return errors.New("--code or --code-file is required")
			}

			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}
			res, err := api.RunTechnical(cmd.Context(), sessionID, user, models.TechnicalInput{
				Mode:       models.ModeEvaluateCode,
				QuestionID: questionID,
				Code:       submission,
				Language:   language,
			})
			if err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("evaluation failed: %s", res.Error)
			}
			out := cmd.OutOrStdout()
			status, _ := res.Output["status"].(string)
			score, _ := res.Output["score"].(float64)
			passed := intField(res.Output, "tests_passed")
			total := intField(res.Output, "total_tests")
			_, _ = fmt.Fprintf(out, "Status: %s (score %.2f, tests %d/%d)\n", status, score, passed, total)
			if feedback, ok := res.Output["feedback"].(string); ok && feedback != "" {
				_, _ = fmt.Fprintf(out, "\n%s\n", feedback)
			}
			if recs, ok := res.Output["recommendations"].([]any); ok && len(recs) > 0 {
				_, _ = fmt.Fprintln(out, "\nRecommendations:")
				for _, rec := range recs {
					_, _ = fmt.Fprintf(out, "  - %v\n", rec)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID")
	cmd.Flags().StringVar(&user, "user", "", "User ID")
	cmd.Flags().StringVar(&questionID, "question", "", "Question ID")
	cmd.Flags().StringVar(&code, "code", "", "Code submission")
	cmd.Flags().StringVar(&codeFile, "code-file", "", "Read the code submission from this file (\"-\" for stdin)")
	cmd.Flags().StringVar(&language, "language", "python", "Submission language")
	return cmd
}

// intField reads an integer out of decoded JSON, which renders numbers as
// float64.
func intField(m map[string]any, key string) int {
	switch n := m[key].(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
