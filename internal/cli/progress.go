package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/config"
)

func newProgressCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show your score trend across completed sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}

			rep, err := api.Progress(cmd.Context(), user)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if rep.TotalSessions == 0 {
				_, _ = fmt.Fprintln(out, "No completed sessions yet.")
				return nil
			}
			_, _ = fmt.Fprintf(out, "Progress for %s\n", user)
			_, _ = fmt.Fprintf(out, "  sessions:      %d\n", rep.TotalSessions)
			_, _ = fmt.Fprintf(out, "  average score: %.0f%%\n", rep.AverageScore*100)
			_, _ = fmt.Fprintf(out, "  trend:         %s", rep.Trend)
			if rep.ImprovementRate != 0 {
				_, _ = fmt.Fprintf(out, " (%+.0f%%)", rep.ImprovementRate*100)
			}
			_, _ = fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID")
	return cmd
}
