package models

// Session states used throughout the codebase.
const (
	StateCreated   = "created"
	StateRunning   = "running"
	StatePaused    = "paused"
	StateCompleted = "completed"
	StateExpired   = "expired"
	StateFailed    = "failed"
)

// Agent names.
const (
	AgentResearch  = "research"
	AgentTechnical = "technical"
	AgentCompanion = "companion"
)

// Technical agent modes.
const (
	ModeSelectQuestions = "select_questions"
	ModeEvaluateCode    = "evaluate_code"
)

// Companion agent modes.
const (
	CompanionEncouragement   = "encouragement"
	CompanionTips            = "tips"
	CompanionSummary         = "summary"
	CompanionRecommendations = "recommendations"
	CompanionAll             = "all"
)

// Artifact types.
const (
	ArtifactResearch   = "research_packet"
	ArtifactQuestions  = "question_set"
	ArtifactEvaluation = "code_evaluation"
	ArtifactCompanion  = "companion_notes"
)

// Question difficulties.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Code evaluation statuses.
const (
	EvalStatusSuccess = "success"
	EvalStatusPartial = "partial"
)

// Default limits.
const (
	DefaultMaxRequestBodyBytes = 1 << 20 // 1 MiB
	DefaultSessionListLimit    = 1000
	DefaultQuestionCount       = 3
	DefaultSSEChannelBuffer    = 256
	DefaultJournalEntryLimit   = 20
)

// ValidState reports whether s is a known session state.
func ValidState(s string) bool {
	switch s {
	case StateCreated, StateRunning, StatePaused, StateCompleted, StateExpired, StateFailed:
		return true
	}
	return false
}

// TerminalState reports whether a session in state s can never run again.
func TerminalState(s string) bool {
	switch s {
	case StateCompleted, StateExpired, StateFailed:
		return true
	}
	return false
}

// ValidDifficulty reports whether d is a known question difficulty.
func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}
