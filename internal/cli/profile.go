package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/config"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/identity"
	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your interview-target profile",
	}
	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileSetCmd())
	cmd.AddCommand(newProfileDetectCmd())
	return cmd
}

func newProfileShowCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the saved profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}

			p, err := api.Profile(cmd.Context(), user)
			if err != nil {
				return err
			}
			printProfile(cmd, user, p)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID")
	return cmd
}

func printProfile(cmd *cobra.Command, user string, p *models.Profile) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Profile for %s\n", user)
	if p.Name != "" {
		_, _ = fmt.Fprintf(out, "  name:    %s\n", p.Name)
	}
	if p.Email != "" {
		_, _ = fmt.Fprintf(out, "  email:   %s\n", p.Email)
	}
	if p.TargetRole != "" {
		_, _ = fmt.Fprintf(out, "  role:    %s\n", p.TargetRole)
	}
	if p.TargetCompany != "" {
		_, _ = fmt.Fprintf(out, "  company: %s\n", p.TargetCompany)
	}
}

func newProfileSetCmd() *cobra.Command {
	var (
		user    string
		name    string
		email   string
		role    string
		company string
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set profile fields (unset flags keep their saved value)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			api, err := apiClient(cmd.Context(), home)
			if err != nil {
				return err
			}

			// Merge onto whatever is already saved; a missing profile starts
			// empty.
			p, err := api.Profile(cmd.Context(), user)
			if err != nil {
				p = &models.Profile{}
			}
			if name != "" {
				p.Name = name
			}
			if email != "" {
				p.Email = email
			}
			if role != "" {
				p.TargetRole = role
			}
			if company != "" {
				p.TargetCompany = company
			}

			if err := api.SaveProfile(cmd.Context(), user, *p); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Profile saved.")
			printProfile(cmd, user, p)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID")
	cmd.Flags().StringVar(&name, "name", "", "Your name")
	cmd.Flags().StringVar(&email, "email", "", "Your email")
	cmd.Flags().StringVar(&role, "role", "", "Target role (e.g. \"Backend Engineer\")")
	cmd.Flags().StringVar(&company, "company", "", "Target company")
	return cmd
}

func newProfileDetectCmd() *cobra.Command {
	var (
		user    string
		repoDir string
	)
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect name and email from git config and save them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			home := config.MustHomeFrom(cmd.Context())

			detected, err := identity.DetectFromGit(repoDir)
			if err != nil {
				return err
			}
			// Keep a previously chosen interview target.
			if existing, err := identity.LoadProfile(home, user); err == nil && existing != nil {
				detected.TargetRole = existing.TargetRole
				detected.TargetCompany = existing.TargetCompany
			}
			if err := identity.SaveProfile(home, user, &detected); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Detected: %s <%s>\n", detected.Name, detected.Email)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved to %s\n", identity.ProfilePath(home, user))
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID")
	cmd.Flags().StringVar(&repoDir, "repo", "", "Git repo path (default: global git config)")
	return cmd
}
