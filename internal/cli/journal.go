package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/config"
)

func newJournalCmd() *cobra.Command {
	var (
		user  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show your practice journal (most recent sessions last)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}

			content, err := api.Journal(cmd.Context(), user, limit)
			if err != nil {
				return err
			}
			if strings.TrimSpace(content) == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No journal entries yet.")
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), content)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID")
	cmd.Flags().IntVar(&limit, "limit", 5, "How many recent entries to show (0 = all)")
	return cmd
}
