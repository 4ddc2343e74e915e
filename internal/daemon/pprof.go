package daemon

import (
	"log/slog"
	"net/http"
	"time"

	_ "net/http/pprof"
)

// startPprof serves the pprof handlers (registered on DefaultServeMux by the
// blank import) on addr. No-op when addr is empty.
func startPprof(addr string) {
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			slog.Info("pprof server stopped", "addr", addr, "err", err)
		}
	}()
}
