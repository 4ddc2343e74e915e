package otel

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

var (
	initMetricsOnce     sync.Once
	sessionOpsCounter   metric.Int64Counter
	agentRunsCounter    metric.Int64Counter
	agentRunDuration    metric.Float64Histogram
	workflowRunsCounter metric.Int64Counter
	workflowDuration    metric.Float64Histogram
	sseConnectionsGauge metric.Int64ObservableGauge
	sseEventsCounter    metric.Int64Counter
	sseConnections      int64
	sseConnectionsMu    sync.Mutex
)

// InitMetrics creates the meter instruments. Safe to call multiple times; only runs once.
// Call after InitMeterProvider.
func InitMetrics(ctx context.Context) error {
	var err error
	initMetricsOnce.Do(func() {
		m := Meter()
		sessionOpsCounter, err = m.Int64Counter("copilot_session_operations_total", metric.WithDescription("Total session operations (create, pause, complete, etc.)"))
		if err != nil {
			return
		}
		agentRunsCounter, err = m.Int64Counter("copilot_agent_runs_total", metric.WithDescription("Total agent runs executed"))
		if err != nil {
			return
		}
		agentRunDuration, err = m.Float64Histogram("copilot_agent_run_duration_seconds", metric.WithDescription("Agent run duration in seconds"))
		if err != nil {
			return
		}
		workflowRunsCounter, err = m.Int64Counter("copilot_workflow_runs_total", metric.WithDescription("Total interview workflow runs"))
		if err != nil {
			return
		}
		workflowDuration, err = m.Float64Histogram("copilot_workflow_duration_seconds", metric.WithDescription("Interview workflow duration in seconds"))
		if err != nil {
			return
		}
		sseEventsCounter, err = m.Int64Counter("copilot_sse_events_total", metric.WithDescription("Total SSE events published"))
		if err != nil {
			return
		}
		sseConnectionsGauge, err = m.Int64ObservableGauge("copilot_sse_connections", metric.WithDescription("Current SSE subscriber count"))
		if err != nil {
			return
		}
		_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			sseConnectionsMu.Lock()
			n := sseConnections
			sseConnectionsMu.Unlock()
			o.ObserveInt64(sseConnectionsGauge, n)
			return nil
		}, sseConnectionsGauge)
		if err != nil {
			return
		}
	})
	return err
}

// RecordSessionOperation records a session operation (create, pause, complete, etc.).
func RecordSessionOperation(ctx context.Context, op string, state string) {
	if sessionOpsCounter == nil {
		return
	}
	attrs := []metric.AddOption{metric.WithAttributes(AttrOperation.String(op), AttrState.String(state))}
	sessionOpsCounter.Add(ctx, 1, attrs...)
}

// RecordAgentRun records one agent run and its duration.
func RecordAgentRun(ctx context.Context, agent string, success bool, duration time.Duration) {
	if agentRunsCounter != nil {
		agentRunsCounter.Add(ctx, 1, metric.WithAttributes(
			AttrAgent.String(agent),
			AttrSuccess.String(strconv.FormatBool(success)),
		))
	}
	if agentRunDuration != nil {
		agentRunDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(AttrAgent.String(agent)))
	}
}

// RecordWorkflowRun records one interview workflow run and its duration.
func RecordWorkflowRun(ctx context.Context, result string, duration time.Duration) {
	if workflowRunsCounter != nil {
		workflowRunsCounter.Add(ctx, 1, metric.WithAttributes(AttrResult.String(result)))
	}
	if workflowDuration != nil {
		workflowDuration.Record(ctx, duration.Seconds())
	}
}

// RecordSSEEvent records one SSE event published.
func RecordSSEEvent(ctx context.Context) {
	if sseEventsCounter != nil {
		sseEventsCounter.Add(ctx, 1)
	}
}

// AddSSEConnection adds 1 to the SSE connection gauge (call on subscribe).
func AddSSEConnection() {
	sseConnectionsMu.Lock()
	sseConnections++
	sseConnectionsMu.Unlock()
}

// RemoveSSEConnection subtracts 1 from the SSE connection gauge (call on unsubscribe).
func RemoveSSEConnection() {
	sseConnectionsMu.Lock()
	sseConnections--
	if sseConnections < 0 {
		sseConnections = 0
	}
	sseConnectionsMu.Unlock()
}

// SessionCountFunc returns session counts keyed by state. Used for the
// copilot_sessions_total gauge.
type SessionCountFunc func() map[string]int64

// InitMetricsWithSessionCount creates instruments and optionally registers a
// callback for the per-state session gauge. Call after InitMeterProvider.
// If sessionCount is nil, the gauge is not reported.
func InitMetricsWithSessionCount(ctx context.Context, sessionCount SessionCountFunc) error {
	if err := InitMetrics(ctx); err != nil {
		return err
	}
	if sessionCount == nil {
		return nil
	}
	m := Meter()
	sessionsGauge, err := m.Float64ObservableGauge("copilot_sessions_total", metric.WithDescription("Number of sessions by state"))
	if err != nil {
		return err
	}
	_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		for state, n := range sessionCount() {
			o.ObserveFloat64(sessionsGauge, float64(n), metric.WithAttributes(AttrState.String(state)))
		}
		return nil
	}, sessionsGauge)
	return err
}
