package cli

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/config"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/daemon"
)

func newStartCmd() *cobra.Command {
	var (
		port       int
		foreground bool
		dev        bool
		pprofAddr  string
		envFile    string
		enableOtel bool
		noBrowser  bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start Copilot (API server + session daemon)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Overload(envFile); err != nil {
					return fmt.Errorf("load %s: %w", envFile, err)
				}
			}
			home := config.MustHomeFrom(cmd.Context())

			opts := daemon.StartOptions{
				Home:       home,
				Port:       port,
				Dev:        dev,
				PprofAddr:  pprofAddr,
				EnableOtel: enableOtel,
			}

			if foreground {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Starting Copilot in foreground (home %s)\n", home)
				return daemon.StartForeground(cmd.Context(), opts)
			}

			pid, err := daemon.StartBackground(cmd.Context(), opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Copilot started (pid %d)\n", pid)

			if st, _ := daemon.Status(cmd.Context(), home); st.Running && st.Addr != "unknown" {
				ui := statusPageURL(st.Addr)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Status page: %s\n", ui)
				if !noBrowser {
					// Best-effort open browser (Linux: xdg-open, macOS: open, Windows: start).
					_ = openBrowser(ui)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port for the API server (default: COPILOT_PORT or 8000)")
	cmd.Flags().BoolVar(&foreground, "foreground", false, "Run in foreground (do not daemonize)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable dev mode (permissive CORS)")
	cmd.Flags().StringVar(&pprofAddr, "pprof", "", "Enable pprof on address (e.g. 127.0.0.1:6060)")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Load env vars from this file before starting")
	cmd.Flags().BoolVar(&enableOtel, "otel", true, "Enable OpenTelemetry metrics (Prometheus exporter, HTTP/session/agent instrumentation)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open the status page in a browser")

	return cmd
}

func statusPageURL(addr string) string {
	if host, portPart, ok := strings.Cut(addr, ":"); ok && (host == "" || host == "0.0.0.0" || host == "::") {
		addr = "localhost:" + portPart
	}
	return (&url.URL{Scheme: "http", Host: addr}).String()
}

func openBrowser(u string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", u).Start()
	case "windows":
		return exec.Command("cmd", "/c", "start", u).Start()
	default:
		// Linux and others
		if _, err := exec.LookPath("xdg-open"); err != nil {
			return err
		}
		return exec.Command("xdg-open", u).Start()
	}
}
