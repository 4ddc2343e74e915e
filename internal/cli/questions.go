package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/config"
	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

func newQuestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Browse the practice question bank",
	}
	cmd.AddCommand(newQuestionsListCmd())
	cmd.AddCommand(newQuestionsShowCmd())
	return cmd
}

func newQuestionsListCmd() *cobra.Command {
	var (
		difficulty string
		tags       []string
		search     string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List questions (optionally by difficulty, tag, or search)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if difficulty != "" && !models.ValidDifficulty(difficulty) {
				return fmt.Errorf("unknown difficulty %q", difficulty)
			}
			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}

			qs, err := api.ListQuestions(cmd.Context(), difficulty, tags, search)
			if err != nil {
				return err
			}
			if len(qs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No questions.")
				return nil
			}
			for _, q := range qs {
				line := fmt.Sprintf("- [%s] %s (%s)", q.ID, q.Title, q.Difficulty)
				if len(q.Tags) > 0 {
					line += " " + strings.Join(q.Tags, ",")
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "Filter by difficulty (easy, medium, hard)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Filter by tag (repeatable)")
	cmd.Flags().StringVar(&search, "search", "", "Search titles and descriptions")
	return cmd
}

func newQuestionsShowCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one question in full",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return errors.New("--id is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}

			q, err := api.GetQuestion(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s (%s)\n", q.Title, q.Difficulty)
			if len(q.Tags) > 0 {
				_, _ = fmt.Fprintf(out, "tags: %s\n", strings.Join(q.Tags, ", "))
			}
			_, _ = fmt.Fprintf(out, "\n%s\n", q.Description)
			if q.Constraints != "" {
				_, _ = fmt.Fprintf(out, "\nConstraints: %s\n", q.Constraints)
			}
			for i, ex := range q.Examples {
				_, _ = fmt.Fprintf(out, "\nExample %d:\n  input:  %s\n  output: %s\n", i+1, ex.Input, ex.Output)
				if ex.Explanation != "" {
					_, _ = fmt.Fprintf(out, "  %s\n", ex.Explanation)
				}
			}
			if len(q.Hints) > 0 {
				_, _ = fmt.Fprintln(out, "\nHints:")
				for _, h := range q.Hints {
					_, _ = fmt.Fprintf(out, "  - %s\n", h)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Question ID")
	return cmd
}
