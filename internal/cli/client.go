package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/daemon"
	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/client"
)

// apiClient connects to the running daemon. Domain commands go through the
// HTTP API rather than opening the store directly, so the daemon's cache
// stays the single writer.
func apiClient(ctx context.Context, home string) (*client.Client, error) {
	st, err := daemon.Status(ctx, home)
	if err != nil {
		return nil, err
	}
	if !st.Running {
		return nil, fmt.Errorf("copilot is not running (start it with `copilot start`)")
	}
	addr := st.Addr
	// The daemon listens on all interfaces; talk to it over loopback.
	if host, port, ok := strings.Cut(addr, ":"); ok && (host == "" || host == "0.0.0.0" || host == "::") {
		addr = "127.0.0.1:" + port
	}
	return client.New("http://"+addr, os.Getenv("COPILOT_API_KEY")), nil
}
