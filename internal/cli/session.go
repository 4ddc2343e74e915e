package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/config"
	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage interview sessions",
	}
	cmd.AddCommand(newSessionCreateCmd())
	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionShowCmd())
	cmd.AddCommand(newSessionDeleteCmd())
	cmd.AddCommand(newSessionPauseCmd())
	cmd.AddCommand(newSessionResumeCmd())
	cmd.AddCommand(newSessionStatsCmd())
	return cmd
}

func newSessionCreateCmd() *cobra.Command {
	var (
		user    string
		company string
		meta    []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}

			metadata, err := parseMeta(meta)
			if err != nil {
				return err
			}
			if company != "" {
				metadata["company_name"] = company
			}

			sess, err := api.CreateSession(cmd.Context(), user, metadata)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created session %s (user %q, state %s)\n", sess.SessionID, sess.UserID, sess.State)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID")
	cmd.Flags().StringVar(&company, "company", "", "Target company (stored in metadata)")
	cmd.Flags().StringArrayVar(&meta, "meta", nil, "Metadata entry key=value (repeatable)")
	return cmd
}

// parseMeta turns key=value pairs into a metadata map.
func parseMeta(pairs []string) (map[string]any, error) {
	metadata := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --meta entry %q (want key=value)", p)
		}
		metadata[strings.TrimSpace(key)] = value
	}
	return metadata, nil
}

func newSessionListCmd() *cobra.Command {
	var (
		user  string
		state string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions (optionally by user and state)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if state != "" && !models.ValidState(state) {
				return fmt.Errorf("unknown state %q", state)
			}
			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}

			sessions, err := api.ListSessions(cmd.Context(), user, state)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No sessions.")
				return nil
			}
			for _, s := range sessions {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "- %s user=%s state=%s updated=%s\n",
					s.SessionID, s.UserID, s.State, s.UpdatedAt.Local().Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Filter by user ID")
	cmd.Flags().StringVar(&state, "state", "", "Filter by state (created, running, paused, completed, expired, failed)")
	return cmd
}

func newSessionShowCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one session in full",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return errors.New("--id is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}

			sess, err := api.GetSession(cmd.Context(), id)
			if err != nil {
				return err
			}
			printSession(cmd, sess)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Session ID")
	return cmd
}

func printSession(cmd *cobra.Command, sess *models.Session) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Session %s\n", sess.SessionID)
	_, _ = fmt.Fprintf(out, "  user:      %s\n", sess.UserID)
	_, _ = fmt.Fprintf(out, "  state:     %s\n", sess.State)
	_, _ = fmt.Fprintf(out, "  created:   %s\n", sess.CreatedAt.Local().Format(time.RFC3339))
	_, _ = fmt.Fprintf(out, "  updated:   %s\n", sess.UpdatedAt.Local().Format(time.RFC3339))
	if sess.CompletedAt != nil {
		_, _ = fmt.Fprintf(out, "  completed: %s\n", sess.CompletedAt.Local().Format(time.RFC3339))
	}
	if len(sess.Metadata) > 0 {
		keys := make([]string, 0, len(sess.Metadata))
		for k := range sess.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		_, _ = fmt.Fprintln(out, "  metadata:")
		for _, k := range keys {
			_, _ = fmt.Fprintf(out, "    %s: %v\n", k, sess.Metadata[k])
		}
	}
	if len(sess.AgentStates) > 0 {
		_, _ = fmt.Fprintln(out, "  agents:")
		for _, name := range []string{models.AgentResearch, models.AgentTechnical, models.AgentCompanion} {
			st, ok := sess.AgentStates[name]
			if !ok {
				continue
			}
			if st.Success {
				_, _ = fmt.Fprintf(out, "    %s: ok (%dms)\n", name, st.ExecutionTimeMS)
			} else {
				_, _ = fmt.Fprintf(out, "    %s: FAILED: %s\n", name, st.Error)
			}
		}
	}
	if n := len(sess.Artifacts); n > 0 {
		_, _ = fmt.Fprintf(out, "  artifacts: %d\n", n)
	}
	if n := len(sess.Checkpoints); n > 0 {
		_, _ = fmt.Fprintf(out, "  checkpoints: %d\n", n)
	}
}

func newSessionDeleteCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a session from cache and storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return errors.New("--id is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}

			if err := api.DeleteSession(cmd.Context(), id); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Session ID")
	return cmd
}

func newSessionPauseCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "pause",
		Short: "Pause a created or running session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return errors.New("--id is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}

			sess, err := api.PauseSession(cmd.Context(), id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Session %s paused\n", sess.SessionID)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Session ID")
	return cmd
}

func newSessionResumeCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return errors.New("--id is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}

			sess, err := api.ResumeSession(cmd.Context(), id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Session %s resumed (state %s)\n", sess.SessionID, sess.State)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Session ID")
	return cmd
}

func newSessionStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show session cache and storage counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}

			stats, err := api.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "cached: %d\n", stats.Cached)
			_, _ = fmt.Fprintf(out, "stored: %d\n", stats.Stored)
			states := make([]string, 0, len(stats.ByState))
			for s := range stats.ByState {
				states = append(states, s)
			}
			sort.Strings(states)
			for _, s := range states {
				_, _ = fmt.Fprintf(out, "  %s: %d\n", s, stats.ByState[s])
			}
			return nil
		},
	}
	return cmd
}
