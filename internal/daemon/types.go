package daemon

// StartOptions configures the daemon process.
type StartOptions struct {
	Home string
	// Port overrides COPILOT_PORT when non-zero.
	Port int
	// Dev enables permissive CORS on the API server.
	Dev bool
	// PprofAddr starts a pprof listener when set (e.g. "localhost:6060").
	PprofAddr string
	// EnableOtel switches /metrics to the OpenTelemetry Prometheus exporter
	// and instruments HTTP, sessions, agents, and SSE.
	EnableOtel bool
}

// StatusInfo is the result of Status (running or not, PID, listen addr).
type StatusInfo struct {
	Running bool
	PID     int
	Addr    string
}
