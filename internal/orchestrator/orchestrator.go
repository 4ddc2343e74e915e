// Package orchestrator sequences the research, technical, and companion
// agents against one session. Phases run strictly in order and every phase
// result is persisted to the session before the next phase starts, so later
// phases read earlier outputs out of session state. Agent failures are data
// and the workflow keeps going; only persistence failures abort a run.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/agent"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/otel"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/session"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/store"
	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

// Publisher fans workflow events out to live subscribers.
type Publisher interface {
	PublishJSON(v any)
}

// Profiles supplies stored user defaults for inputs the caller left blank.
type Profiles interface {
	TargetCompany(userID string) string
}

const defaultMaxConcurrent = 4

// Options configures an Orchestrator.
type Options struct {
	// Hub receives phase_started, phase_completed, and session_update
	// events. Optional.
	Hub Publisher
	// Profiles fills in a missing company name from the user profile.
	// Optional.
	Profiles Profiles
	// MaxConcurrent bounds concurrent full runs. Defaults to 4.
	MaxConcurrent int
	// PhaseTimeout bounds each agent call. Zero means no per-phase bound.
	PhaseTimeout time.Duration
	// StopOnResearchFailure skips the technical and companion phases when
	// research fails. The default keeps going and records the failure in
	// agent state.
	StopOnResearchFailure bool
}

// Orchestrator runs the interview-preparation workflow.
type Orchestrator struct {
	sessions  *session.Service
	research  agent.Agent
	technical agent.Agent
	companion agent.Agent

	hub       Publisher
	profiles  Profiles
	timeout   time.Duration
	stopEarly bool
	sem       chan struct{}
}

// New wires the three agents to the session service.
func New(sessions *session.Service, research, technical, companion agent.Agent, opts Options) *Orchestrator {
	maxRuns := opts.MaxConcurrent
	if maxRuns <= 0 {
		maxRuns = defaultMaxConcurrent
	}
	return &Orchestrator{
		sessions:  sessions,
		research:  research,
		technical: technical,
		companion: companion,
		hub:       opts.Hub,
		profiles:  opts.Profiles,
		timeout:   opts.PhaseTimeout,
		stopEarly: opts.StopOnResearchFailure,
		sem:       make(chan struct{}, maxRuns),
	}
}

// Run executes the full workflow: research when company and job context are
// present, technical when requested, companion always. The session finishes
// in state completed whatever the per-phase outcomes, and the aggregate
// Success is true only when every invoked phase succeeded. Validation and
// persistence failures are returned as errors; persistence failures also
// mark the session failed.
func (o *Orchestrator) Run(ctx context.Context, req models.RunRequest) (*models.RunResult, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, &session.ValidationError{Field: "user_id", Reason: "required"}
	}
	if req.Technical != nil {
		if err := agent.ValidateTechnicalInput(*req.Technical); err != nil {
			return nil, err
		}
	}
	if err := agent.ValidateCompanionMode(req.CompanionMode); err != nil {
		return nil, err
	}

	select {
	case o.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-o.sem }()

	start := time.Now()
	company := strings.TrimSpace(req.CompanyName)
	if company == "" && o.profiles != nil {
		company = o.profiles.TargetCompany(req.UserID)
	}
	jd := strings.TrimSpace(req.JobDescription)

	sess, err := o.resolveSession(ctx, req, company, jd)
	if err != nil {
		return nil, err
	}
	sessionID := sess.SessionID
	result := &models.RunResult{SessionID: sessionID}

	if _, err := o.sessions.MarkRunning(ctx, sessionID); err != nil {
		return nil, o.abort(ctx, sessionID, req.UserID, start, err)
	}
	o.publishSession(sessionID, req.UserID, models.StateRunning)
	slog.Info("workflow run started", "session_id", sessionID, "user_id", req.UserID)

	// Each failing phase overwrites phaseErr; the last failure is what the
	// aggregate reports.
	phaseErr := ""

	if company != "" && jd != "" {
		res, err := o.invoke(ctx, sessionID, req.UserID, o.research, map[string]any{
			"company_name":    company,
			"job_description": jd,
		}, req.Metadata)
		if err != nil {
			return nil, o.abort(ctx, sessionID, req.UserID, start, err)
		}
		result.Research = res.ToModel()
		if res.Success {
			if err := o.sessions.AddArtifact(ctx, sessionID, models.ArtifactResearch, res.Output); err != nil {
				return nil, o.abort(ctx, sessionID, req.UserID, start, err)
			}
		} else {
			phaseErr = "research agent failed: " + res.Error
			if o.stopEarly {
				slog.Warn("research failed, skipping remaining phases", "session_id", sessionID, "error", res.Error)
				return o.finish(ctx, sessionID, req.UserID, result, phaseErr, start)
			}
		}
	}

	if req.Technical != nil {
		in := *req.Technical
		res, err := o.invoke(ctx, sessionID, req.UserID, o.technical, agent.TechnicalContext(in), req.Metadata)
		if err != nil {
			return nil, o.abort(ctx, sessionID, req.UserID, start, err)
		}
		result.Technical = res.ToModel()
		if res.Success {
			if err := o.sessions.AddArtifact(ctx, sessionID, technicalArtifact(in), technicalPayload(in, res.Output)); err != nil {
				return nil, o.abort(ctx, sessionID, req.UserID, start, err)
			}
		} else {
			phaseErr = "technical agent failed: " + res.Error
		}
	}

	input, err := o.companionInput(ctx, sessionID, req.CompanionMode, result.Technical)
	if err != nil {
		return nil, o.abort(ctx, sessionID, req.UserID, start, err)
	}
	res, err := o.invoke(ctx, sessionID, req.UserID, o.companion, input, req.Metadata)
	if err != nil {
		return nil, o.abort(ctx, sessionID, req.UserID, start, err)
	}
	result.Companion = res.ToModel()
	if res.Success {
		if err := o.sessions.AddArtifact(ctx, sessionID, models.ArtifactCompanion, res.Output); err != nil {
			return nil, o.abort(ctx, sessionID, req.UserID, start, err)
		}
	} else {
		phaseErr = "companion agent failed: " + res.Error
	}

	return o.finish(ctx, sessionID, req.UserID, result, phaseErr, start)
}

// RunResearch executes only the research phase against an existing session.
func (o *Orchestrator) RunResearch(ctx context.Context, sessionID, userID, jobDescription, companyName string) (*models.AgentResult, error) {
	if _, err := o.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	res, err := o.invoke(ctx, sessionID, userID, o.research, map[string]any{
		"company_name":    strings.TrimSpace(companyName),
		"job_description": strings.TrimSpace(jobDescription),
	}, nil)
	if err != nil {
		return nil, err
	}
	if res.Success {
		if err := o.sessions.AddArtifact(ctx, sessionID, models.ArtifactResearch, res.Output); err != nil {
			return nil, err
		}
	}
	return res.ToModel(), nil
}

// RunTechnical executes only the technical phase against an existing
// session. The mode is validated up front; an unknown mode is a
// ValidationError, not a failed result.
func (o *Orchestrator) RunTechnical(ctx context.Context, sessionID, userID string, in models.TechnicalInput) (*models.AgentResult, error) {
	if err := agent.ValidateTechnicalInput(in); err != nil {
		return nil, err
	}
	if _, err := o.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	res, err := o.invoke(ctx, sessionID, userID, o.technical, agent.TechnicalContext(in), nil)
	if err != nil {
		return nil, err
	}
	if res.Success {
		if err := o.sessions.AddArtifact(ctx, sessionID, technicalArtifact(in), technicalPayload(in, res.Output)); err != nil {
			return nil, err
		}
	}
	return res.ToModel(), nil
}

// resolveSession loads the requested session or creates one seeded with the
// run's company and job context.
func (o *Orchestrator) resolveSession(ctx context.Context, req models.RunRequest, company, jd string) (*store.Session, error) {
	if req.SessionID != "" {
		sess, err := o.sessions.Get(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		if company != "" {
			_ = o.sessions.SetMetadata(ctx, sess.SessionID, "company_name", company)
		}
		if jd != "" {
			_ = o.sessions.SetMetadata(ctx, sess.SessionID, "job_description", excerpt(jd, 200))
		}
		return sess, nil
	}

	md := make(map[string]any, len(req.Metadata)+2)
	for k, v := range req.Metadata {
		md[k] = v
	}
	if company != "" {
		md["company_name"] = company
	}
	if jd != "" {
		md["job_description"] = excerpt(jd, 200)
	}
	return o.sessions.Create(ctx, req.UserID, md)
}

// invoke runs one agent phase and persists its result into session state
// before returning. Success=false with a nil error means the agent itself
// failed; a non-nil error means the result could not be persisted.
func (o *Orchestrator) invoke(ctx context.Context, sessionID, userID string, a agent.Agent, input, metadata map[string]any) (agent.Result, error) {
	o.publish(map[string]any{
		"type":       "phase_started",
		"session_id": sessionID,
		"agent":      a.Name(),
	})

	res := agent.Run(ctx, a, agent.Context{
		SessionID: sessionID,
		UserID:    userID,
		Input:     input,
		Metadata:  metadata,
		Timeout:   o.timeout,
	})
	if err := o.sessions.UpdateAgentState(ctx, sessionID, a.Name(), res.ToState()); err != nil {
		return res, err
	}

	ev := map[string]any{
		"type":        "phase_completed",
		"session_id":  sessionID,
		"agent":       a.Name(),
		"success":     res.Success,
		"duration_ms": res.ExecutionTimeMS,
	}
	if res.Error != "" {
		ev["error"] = res.Error
	}
	o.publish(ev)
	return res, nil
}

// companionInput assembles the accumulated state the companion reads. Code
// evaluation artifacts are authoritative for attempted and solved counts;
// without any, the technical phase's question list counts as attempted.
func (o *Orchestrator) companionInput(ctx context.Context, sessionID, mode string, technical *models.AgentResult) (map[string]any, error) {
	sess, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	attempted := 0
	solved := 0
	skills := map[string]any{}
	if technical != nil && technical.Success {
		if qs, ok := technical.Output["questions"].([]models.Question); ok {
			attempted = len(qs)
		}
		if sp, ok := technical.Output["skills_progress"].(map[string]any); ok {
			skills = sp
		}
	}

	evaluations := 0
	passed := 0
	for _, a := range sess.Artifacts {
		if a.Type != models.ArtifactEvaluation {
			continue
		}
		evaluations++
		if ev, ok := a.Payload["evaluation"].(map[string]any); ok {
			if status, _ := ev["status"].(string); status == models.EvalStatusSuccess {
				passed++
			}
		}
	}
	if evaluations > 0 {
		attempted = evaluations
		solved = passed
	}

	data := map[string]any{
		"questions_attempted": attempted,
		"questions_solved":    solved,
		"skills_progress":     skills,
		"created_at":          sess.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":          sess.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if sess.CompletedAt != nil {
		data["completed_at"] = sess.CompletedAt.UTC().Format(time.RFC3339)
	}

	input := map[string]any{"session_data": data}
	if mode != "" {
		input["mode"] = mode
	}
	return input, nil
}

// finish completes the session and builds the aggregate result.
func (o *Orchestrator) finish(ctx context.Context, sessionID, userID string, result *models.RunResult, phaseErr string, start time.Time) (*models.RunResult, error) {
	if _, err := o.sessions.Complete(ctx, sessionID); err != nil {
		return nil, o.abort(ctx, sessionID, userID, start, err)
	}
	o.publishSession(sessionID, userID, models.StateCompleted)

	result.Success = phaseErr == ""
	result.Error = phaseErr
	label := "success"
	if phaseErr != "" {
		label = "partial"
	}
	otel.RecordWorkflowRun(ctx, label, time.Since(start))
	slog.Info("workflow run finished",
		"session_id", sessionID,
		"success", result.Success,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// abort marks the session failed after a fatal error. The mark is
// best-effort and survives caller cancellation; the original error goes
// back to the caller.
func (o *Orchestrator) abort(ctx context.Context, sessionID, userID string, start time.Time, err error) error {
	slog.Error("workflow run aborted", "session_id", sessionID, "error", err)
	_, _ = o.sessions.Fail(context.WithoutCancel(ctx), sessionID, err.Error())
	o.publishSession(sessionID, userID, models.StateFailed)
	otel.RecordWorkflowRun(ctx, "error", time.Since(start))
	return err
}

func (o *Orchestrator) publish(ev map[string]any) {
	if o.hub == nil {
		return
	}
	ev["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	o.hub.PublishJSON(ev)
}

func (o *Orchestrator) publishSession(sessionID, userID, state string) {
	o.publish(map[string]any{
		"type":       "session_update",
		"session_id": sessionID,
		"user_id":    userID,
		"state":      state,
	})
}

func technicalArtifact(in models.TechnicalInput) string {
	if in.Mode == models.ModeEvaluateCode {
		return models.ArtifactEvaluation
	}
	return models.ArtifactQuestions
}

// technicalPayload shapes the artifact for the mode. Code evaluations keep
// the submission context alongside the evaluation so the companion phase
// can count solved questions from artifacts alone.
func technicalPayload(in models.TechnicalInput, output map[string]any) map[string]any {
	if in.Mode != models.ModeEvaluateCode {
		return output
	}
	language := in.Language
	if language == "" {
		language = "python"
	}
	return map[string]any{
		"question_id": in.QuestionID,
		"language":    language,
		"evaluation":  output,
	}
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
