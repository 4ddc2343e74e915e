package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/config"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage your interview prep plan",
	}
	cmd.AddCommand(newPlanShowCmd())
	cmd.AddCommand(newPlanEditCmd())
	return cmd
}

func newPlanShowCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the prep plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}

			content, err := api.Plan(cmd.Context(), user)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID")
	return cmd
}

func newPlanEditCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit the prep plan in $EDITOR and save it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}

			content, err := api.Plan(cmd.Context(), user)
			if err != nil {
				return err
			}

			edited, changed, err := editInEditor(content)
			if err != nil {
				return err
			}
			if !changed {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No changes.")
				return nil
			}
			if err := api.SavePlan(cmd.Context(), user, edited); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Plan saved.")
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID")
	return cmd
}

// editInEditor round-trips content through the user's editor and reports
// whether it changed.
func editInEditor(content string) (string, bool, error) {
	dir, err := os.MkdirTemp("", "copilot-plan-*")
	if err != nil {
		return "", false, err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "plan.md")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", false, err
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	edit := exec.Command(editor, path)
	edit.Stdin = os.Stdin
	edit.Stdout = os.Stdout
	edit.Stderr = os.Stderr
	if err := edit.Run(); err != nil {
		return "", false, fmt.Errorf("run %s: %w", editor, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	return string(data), string(data) != content, nil
}
