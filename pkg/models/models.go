// Package models provides shared types for the Copilot HTTP API and external tools.
// These types mirror the API JSON and are stable for use by pkg/client and other consumers.
package models

import "time"

// Session is an interview-preparation session for a single user.
type Session struct {
	SessionID   string                 `json:"session_id"`
	UserID      string                 `json:"user_id"`
	State       string                 `json:"state"`
	AgentStates map[string]AgentResult `json:"agent_states,omitempty"`
	Artifacts   []Artifact             `json:"artifacts,omitempty"`
	Checkpoints []Checkpoint           `json:"checkpoints,omitempty"`
	Metadata    map[string]any         `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// AgentResult is the uniform outcome contract returned by every agent run.
// Exactly one of Output and Error carries the payload, per the Success flag.
type AgentResult struct {
	AgentName       string         `json:"agent_name"`
	Success         bool           `json:"success"`
	Output          map[string]any `json:"output,omitempty"`
	Error           string         `json:"error,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	ExecutionTimeMS int64          `json:"execution_time_ms"`
	TraceID         string         `json:"trace_id,omitempty"`
	UpdatedAt       time.Time      `json:"updated_at,omitempty"`
}

// Artifact is an append-only output item attached to a session.
type Artifact struct {
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// Checkpoint is a point-in-time snapshot of a session's progress.
type Checkpoint struct {
	CheckpointID string             `json:"checkpoint_id"`
	Label        string             `json:"label,omitempty"`
	Snapshot     CheckpointSnapshot `json:"state_snapshot"`
	Timestamp    time.Time          `json:"timestamp"`
}

// CheckpointSnapshot captures the session state and agent results at checkpoint time.
type CheckpointSnapshot struct {
	State       string                 `json:"state"`
	AgentStates map[string]AgentResult `json:"agent_states,omitempty"`
}

// TechnicalInput selects the technical agent's mode. Mode decides which of the
// remaining fields apply: select_questions reads Difficulty and Count,
// evaluate_code reads QuestionID, Code, and Language.
type TechnicalInput struct {
	Mode       string `json:"mode"`
	Difficulty string `json:"difficulty,omitempty"`
	Count      int    `json:"count,omitempty"`
	QuestionID string `json:"question_id,omitempty"`
	Code       string `json:"code,omitempty"`
	Language   string `json:"language,omitempty"`
}

// RunRequest starts a full interview-preparation workflow.
type RunRequest struct {
	UserID         string          `json:"user_id"`
	SessionID      string          `json:"session_id,omitempty"`
	CompanyName    string          `json:"company_name,omitempty"`
	JobDescription string          `json:"job_description,omitempty"`
	Technical      *TechnicalInput `json:"technical,omitempty"`
	CompanionMode  string          `json:"companion_mode,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
}

// RunResult aggregates the per-phase outcomes of a workflow run.
type RunResult struct {
	Success   bool         `json:"success"`
	SessionID string       `json:"session_id"`
	Research  *AgentResult `json:"research,omitempty"`
	Technical *AgentResult `json:"technical,omitempty"`
	Companion *AgentResult `json:"companion,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Question is a practice question from the bank.
type Question struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Difficulty      string            `json:"difficulty"`
	Description     string            `json:"description"`
	Tags            []string          `json:"tags"`
	Examples        []QuestionExample `json:"examples"`
	TestCases       []TestCase        `json:"test_cases"`
	Hints           []string          `json:"hints"`
	Constraints     string            `json:"constraints,omitempty"`
	TimeComplexity  string            `json:"time_complexity,omitempty"`
	SpaceComplexity string            `json:"space_complexity,omitempty"`
}

// QuestionExample is a worked example shown alongside a question.
type QuestionExample struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

// TestCase is one input/expected-output pair used to evaluate submitted code.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

// ExecutionResult aggregates a submission's runs against a question's test cases.
type ExecutionResult struct {
	Status          string          `json:"status"`
	TestsPassed     int             `json:"testsPassed"`
	TotalTests      int             `json:"totalTests"`
	TestResults     []TestRunResult `json:"test_results"`
	ExecutionTimeMS int64           `json:"executionTimeMs"`
}

// TestRunResult reports a single test-case run. ExecutionTime is in seconds.
type TestRunResult struct {
	TestCase      int     `json:"test_case"`
	Passed        bool    `json:"passed"`
	Input         string  `json:"input"`
	Expected      string  `json:"expected"`
	Actual        string  `json:"actual"`
	ExecutionTime float64 `json:"execution_time"`
	Error         string  `json:"error,omitempty"`
}

// SessionStats is the /sessions/stats API response.
type SessionStats struct {
	Cached  int              `json:"cached"`
	ByState map[string]int64 `json:"by_state,omitempty"`
	Stored  int64            `json:"stored"`
}

// Profile is a user's saved interview-target profile.
type Profile struct {
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	TargetRole    string `json:"target_role,omitempty"`
	TargetCompany string `json:"target_company,omitempty"`
}

// Config is the /config API response.
type Config struct {
	Home            string `json:"home,omitempty"`
	StorageType     string `json:"storage_type"`
	ExpirationHours int    `json:"expiration_hours"`
	LLMEngine       string `json:"llm_engine"`
	LLMModel        string `json:"llm_model,omitempty"`
}

// Bootstrap is the /bootstrap API response.
type Bootstrap struct {
	Config   Config       `json:"config"`
	Stats    SessionStats `json:"stats"`
	Recent   []Session    `json:"recent,omitempty"`
	Profiles []string     `json:"profiles,omitempty"`
}

// ProgressReport is the /users/{id}/progress API response. Scores are overall
// session success rates in [0,1], oldest first.
type ProgressReport struct {
	UserID          string    `json:"user_id"`
	TotalSessions   int       `json:"total_sessions"`
	AverageScore    float64   `json:"average_score"`
	Trend           string    `json:"trend"`
	ImprovementRate float64   `json:"improvement_rate"`
	Scores          []float64 `json:"scores,omitempty"`
}
