package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/config"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/httpapi"
)

// runMaintenance owns periodic session housekeeping: the expiration sweep
// and the dirty-session flush. A zero flush interval disables flushing;
// sessions then persist only through auto-save and shutdown.
func runMaintenance(ctx context.Context, cfg *config.Settings, app *httpapi.App) {
	cleanupEvery := cfg.CleanupInterval
	if cleanupEvery <= 0 {
		cleanupEvery = time.Hour
	}
	cleanup := time.NewTicker(cleanupEvery)
	defer cleanup.Stop()

	var flushC <-chan time.Time
	if cfg.FlushInterval > 0 {
		flush := time.NewTicker(cfg.FlushInterval)
		defer flush.Stop()
		flushC = flush.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanup.C:
			n, err := app.Sessions.CleanupExpired(ctx)
			if err != nil {
				slog.Error("session cleanup failed", "err", err)
				continue
			}
			if n > 0 {
				app.Hub.PublishJSON(map[string]any{
					"type":      "sessions_expired",
					"count":     n,
					"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
				})
			}
		case <-flushC:
			if err := app.Sessions.Flush(ctx); err != nil {
				slog.Error("session flush failed", "err", err)
			}
		}
	}
}
