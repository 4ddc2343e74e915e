// Package store defines the persistence interface and shared models for interview sessions.
package store

import "time"

// Session is the persisted record of one interview-preparation session.
// The JSON tags double as the on-disk format of the file backend and the
// column payload format of the SQL backends.
type Session struct {
	SessionID   string                 `json:"session_id"`
	UserID      string                 `json:"user_id"`
	State       string                 `json:"state"`
	AgentStates map[string]*AgentState `json:"agent_states,omitempty"`
	Artifacts   []Artifact             `json:"artifacts,omitempty"`
	Checkpoints []Checkpoint           `json:"checkpoints,omitempty"`
	Metadata    map[string]any         `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// AgentState is the persisted outcome of one agent run within a session.
type AgentState struct {
	AgentName       string         `json:"agent_name"`
	Success         bool           `json:"success"`
	Output          map[string]any `json:"output,omitempty"`
	Error           *string        `json:"error,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	ExecutionTimeMS int64          `json:"execution_time_ms"`
	TraceID         string         `json:"trace_id,omitempty"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Artifact is an append-only output item attached to a session.
type Artifact struct {
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// Checkpoint is a point-in-time snapshot of a session's progress, named
// "<session_id>_<n>" where n counts checkpoints within the session.
type Checkpoint struct {
	CheckpointID string    `json:"checkpoint_id"`
	Label        string    `json:"label,omitempty"`
	Snapshot     Snapshot  `json:"state_snapshot"`
	Timestamp    time.Time `json:"timestamp"`
}

// Snapshot captures the session state and agent results at checkpoint time.
type Snapshot struct {
	State       string                 `json:"state"`
	AgentStates map[string]*AgentState `json:"agent_states,omitempty"`
}

// Touch bumps UpdatedAt to now. Every mutation must call it before saving.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// ExpiredBefore reports whether the session's last activity predates cutoff.
// Expiration is based on UpdatedAt regardless of state.
func (s *Session) ExpiredBefore(cutoff time.Time) bool {
	return s.UpdatedAt.Before(cutoff)
}

// Clone returns a deep copy. Stores and the session cache hand out clones so
// callers can never alias internal state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.AgentStates != nil {
		out.AgentStates = make(map[string]*AgentState, len(s.AgentStates))
		for k, v := range s.AgentStates {
			out.AgentStates[k] = v.Clone()
		}
	}
	if s.Artifacts != nil {
		out.Artifacts = make([]Artifact, len(s.Artifacts))
		for i, a := range s.Artifacts {
			out.Artifacts[i] = a
			out.Artifacts[i].Payload = deepCopyMap(a.Payload)
		}
	}
	if s.Checkpoints != nil {
		out.Checkpoints = make([]Checkpoint, len(s.Checkpoints))
		for i, c := range s.Checkpoints {
			out.Checkpoints[i] = c
			if c.Snapshot.AgentStates != nil {
				snap := make(map[string]*AgentState, len(c.Snapshot.AgentStates))
				for k, v := range c.Snapshot.AgentStates {
					snap[k] = v.Clone()
				}
				out.Checkpoints[i].Snapshot.AgentStates = snap
			}
		}
	}
	out.Metadata = deepCopyMap(s.Metadata)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// Clone returns a deep copy of the agent state.
func (a *AgentState) Clone() *AgentState {
	if a == nil {
		return nil
	}
	out := *a
	out.Output = deepCopyMap(a.Output)
	out.Metadata = deepCopyMap(a.Metadata)
	if a.Error != nil {
		e := *a.Error
		out.Error = &e
	}
	return &out
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
