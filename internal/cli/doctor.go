package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/config"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/questions"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify configuration and runtime dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			out := cmd.OutOrStdout()

			var problems []string

			// Home must exist and be writable; session data lives under it.
			if err := os.MkdirAll(home, 0o755); err != nil {
				problems = append(problems, fmt.Sprintf("home %s not creatable: %v", home, err))
			} else if err := probeWritable(home); err != nil {
				problems = append(problems, fmt.Sprintf("home %s not writable: %v", home, err))
			}

			cfg, err := config.Load(home)
			if err != nil {
				problems = append(problems, err.Error())
			}

			if cfg != nil {
				_, _ = fmt.Fprintf(out, "storage: %s\n", cfg.StorageType)

				bank, err := questions.Load(cfg.QuestionsFile)
				if err != nil {
					problems = append(problems, fmt.Sprintf("question bank unloadable: %v", err))
				} else {
					_, _ = fmt.Fprintf(out, "question bank: %d questions\n", bank.Count())
				}

				switch cfg.LLMEngine {
				case config.EngineOpenAI:
					if cfg.APIKey == "" {
						_, _ = fmt.Fprintln(out, "warning: OPENAI_API_KEY not set; agents will use fallback output")
					}
				case config.EngineCommand:
					if _, err := exec.LookPath(cfg.LLMCommand); err != nil {
						problems = append(problems, fmt.Sprintf("LLM_COMMAND %q not found on PATH", cfg.LLMCommand))
					}
				}
				if cfg.Judge0APIKey == "" {
					_, _ = fmt.Fprintln(out, "warning: JUDGE0_API_KEY not set; code evaluation will skip test execution")
				}
			}

			if len(problems) > 0 {
				for _, p := range problems {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), p)
				}
				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "ok")
			return nil
		},
	}
	return cmd
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
