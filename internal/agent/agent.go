// Package agent defines the capability interface shared by the research,
// technical, and companion agents, plus the uniform result contract. Agent
// failure is data, not control flow: Run absorbs errors and panics into a
// Result with Success=false.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/otel"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/store"
	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

// Context carries the per-invocation inputs to an agent.
type Context struct {
	SessionID string
	UserID    string
	Input     map[string]any
	Metadata  map[string]any
	// Timeout bounds one Execute call. Zero means the caller's ctx rules.
	Timeout time.Duration
}

// Result is the uniform outcome of one agent run. Exactly one of Output and
// Error carries the payload, per the Success flag.
type Result struct {
	AgentName       string
	Success         bool
	Output          map[string]any
	Error           string
	Metadata        map[string]any
	ExecutionTimeMS int64
	TraceID         string
}

// Agent is one capability in the interview workflow.
type Agent interface {
	Name() string
	Execute(ctx context.Context, c Context) (Result, error)
}

// ExecutionError reports that the invocation mechanism itself could not
// produce a Result. Agent-level failures never use it.
type ExecutionError struct {
	Agent string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("agent %s: %v", e.Agent, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Run invokes the agent and normalizes the outcome: wall time measured,
// a trace id assigned, errors and panics absorbed into Success=false.
// Timeouts surface the same way.
func Run(ctx context.Context, a Agent, c Context) Result {
	start := time.Now()
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var res Result
	func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("agent panicked", "agent", a.Name(), "session_id", c.SessionID, "panic", r)
				res = Result{Success: false, Error: fmt.Sprintf("agent panic: %v", r)}
			}
		}()
		var err error
		res, err = a.Execute(ctx, c)
		if err != nil {
			res = Result{Success: false, Error: err.Error()}
		}
	}()

	res.AgentName = a.Name()
	res.TraceID = uuid.NewString()
	res.ExecutionTimeMS = time.Since(start).Milliseconds()
	otel.RecordAgentRun(ctx, a.Name(), res.Success, time.Since(start))
	slog.Info("agent run finished",
		"agent", a.Name(),
		"session_id", c.SessionID,
		"success", res.Success,
		"duration_ms", res.ExecutionTimeMS,
		"trace_id", res.TraceID)
	return res
}

// ToState converts the result to its persisted form.
func (r Result) ToState() *store.AgentState {
	st := &store.AgentState{
		AgentName:       r.AgentName,
		Success:         r.Success,
		Output:          r.Output,
		Metadata:        r.Metadata,
		ExecutionTimeMS: r.ExecutionTimeMS,
		TraceID:         r.TraceID,
		UpdatedAt:       time.Now().UTC(),
	}
	if r.Error != "" {
		e := r.Error
		st.Error = &e
	}
	return st
}

// ToModel converts the result to the API mirror type.
func (r Result) ToModel() *models.AgentResult {
	return &models.AgentResult{
		AgentName:       r.AgentName,
		Success:         r.Success,
		Output:          r.Output,
		Error:           r.Error,
		Metadata:        r.Metadata,
		ExecutionTimeMS: r.ExecutionTimeMS,
		TraceID:         r.TraceID,
		UpdatedAt:       time.Now().UTC(),
	}
}

// failure builds a failed Result with a formatted error message.
func failure(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// stringInput reads a trimmed string value from an input map.
func stringInput(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}
