// Package httpapi serves the Copilot HTTP API: session CRUD, interview
// workflow runs, the question bank, per-user memory, and the SSE event
// stream. NewApp wires the full stack behind the server; handlers stay thin
// and push domain errors through one taxonomy-to-status mapping.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/agent"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/capabilities"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/config"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/evaluation"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/identity"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/judge0"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/llm"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/memory"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/orchestrator"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/questions"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/session"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/store"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/store/file"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/store/postgres"
	"github.com/Samuel-Adeyeye/Interview-copilot/internal/ui"
	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// ServerOptions configures NewApp.
type ServerOptions struct {
	Home string
	Addr string // defaults to 127.0.0.1:<port from settings>
	// Dev enables permissive CORS for local UI development.
	Dev bool
	// APIKey protects every route except /health and /metrics. Falls back
	// to the settings' COPILOT_API_KEY; empty disables auth.
	APIKey string
	// Settings overrides environment loading, mainly for tests.
	Settings *config.Settings
	// MetricsHandler serves /metrics when set (the OTel Prometheus
	// exporter); otherwise a plain-text session gauge is emitted.
	MetricsHandler http.Handler
	// UseOtelHTTP wraps the handler chain in otelhttp instrumentation.
	UseOtelHTTP bool
}

// App bundles the HTTP server with the services behind it.
type App struct {
	Server       *http.Server
	Hub          *SSEHub
	Sessions     *session.Service
	Bank         *questions.Bank
	Orchestrator *orchestrator.Orchestrator
	Capabilities *capabilities.Registry
	History      *memory.History
	Settings     *config.Settings
	Home         string

	apiKey         string
	dev            bool
	useOtel        bool
	metricsHandler http.Handler
}

// NewApp builds the full serving stack: storage, session service, question
// bank, agents, orchestrator, notifiers, and the HTTP server around them.
func NewApp(ctx context.Context, opts ServerOptions) (*App, error) {
	cfg := opts.Settings
	if cfg == nil {
		loaded, err := config.Load(opts.Home)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	home := opts.Home
	if home == "" {
		home = cfg.Home
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	svc := session.NewService(st, session.Options{
		PersistenceEnabled: cfg.PersistenceEnabled,
		AutoSave:           cfg.AutoSave,
		Expiration:         cfg.Expiration,
	})
	if err := svc.Load(ctx); err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	bank, err := questions.Load(cfg.QuestionsFile)
	if err != nil {
		return nil, err
	}

	base := llm.FromSettings(cfg)
	var runner agent.CodeRunner
	if c := judge0.FromSettings(cfg); c != nil {
		runner = c
	}
	history := &memory.History{Home: home}

	research := agent.NewResearch(agentClient(base, home, models.AgentResearch))
	technical := agent.NewTechnical(agentClient(base, home, models.AgentTechnical), bank, runner)
	companion := agent.NewCompanion(agentClient(base, home, models.AgentCompanion), history)

	hub := NewSSEHub()
	orch := orchestrator.New(svc, research, technical, companion, orchestrator.Options{
		Hub:           hub,
		Profiles:      identity.Directory{Home: home},
		MaxConcurrent: cfg.MaxConcurrent,
	})

	key := opts.APIKey
	if key == "" {
		key = cfg.ServerAPIKey
	}
	app := &App{
		Hub:            hub,
		Sessions:       svc,
		Bank:           bank,
		Orchestrator:   orch,
		Capabilities:   capabilities.FromSettings(cfg),
		History:        history,
		Settings:       cfg,
		Home:           home,
		apiKey:         key,
		dev:            opts.Dev,
		useOtel:        opts.UseOtelHTTP,
		metricsHandler: opts.MetricsHandler,
	}

	addr := opts.Addr
	if addr == "" {
		addr = fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
	app.Server = &http.Server{
		Addr:              addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return app, nil
}

// Close flushes the session cache and closes the store.
func (a *App) Close(ctx context.Context) error {
	return a.Sessions.Close(ctx)
}

func openStore(cfg *config.Settings) (store.Store, error) {
	if !cfg.PersistenceEnabled {
		return nil, nil
	}
	switch cfg.StorageType {
	case config.StorageFile:
		return file.Open(cfg.SessionsFile())
	case config.StorageSQLite:
		return store.Open(cfg.SQLitePath())
	case config.StorageDatabase:
		return postgres.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}
}

// agentClient applies the agent's saved profile, if any, on top of the base
// client.
func agentClient(base llm.Client, home, agentName string) llm.Client {
	p, err := memory.LoadAgentProfile(home, agentName)
	if err != nil {
		slog.Warn("agent profile unreadable", "agent", agentName, "error", err)
		return base
	}
	if p == nil {
		return base
	}
	return llm.Tune(base, p.Model, p.MaxTokens, p.Temperature)
}

// Handler builds the route table and middleware chain.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.handleHealth)
	mux.HandleFunc("/metrics", a.handleMetrics)
	mux.HandleFunc("/config", a.handleConfig)
	mux.HandleFunc("/bootstrap", a.handleBootstrap)
	mux.HandleFunc("/stream", a.Hub.Handler())
	mux.HandleFunc("/sessions", a.handleSessions)
	mux.HandleFunc("/sessions/", a.handleSessionByID)
	mux.HandleFunc("/interviews", a.handleInterviews)
	mux.HandleFunc("/interviews/", a.handleInterviewPhase)
	mux.HandleFunc("/questions", a.handleQuestions)
	mux.HandleFunc("/questions/", a.handleQuestionByID)
	mux.HandleFunc("/users/", a.handleUsers)
	mux.Handle("/", ui.Handler())

	var handler http.Handler = bodyLimitMiddleware(maxBodyBytes, mux)
	if a.dev {
		handler = corsMiddleware(handler)
	}
	handler = apiKeyMiddleware(a.apiKey, handler)
	handler = requestLogMiddleware(handler)
	if a.useOtel {
		handler = otelhttp.NewHandler(handler, "copilot-api")
	}
	return handler
}

func bodyLimitMiddleware(limit int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// apiKeyMiddleware accepts the key via X-API-Key header or api_key query
// parameter (the latter for EventSource clients, which cannot set headers).
// /health and /metrics stay open for probes and scrapers.
func apiKeyMiddleware(key string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key == "" || r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		got := r.Header.Get("X-API-Key")
		if got == "" {
			got = r.URL.Query().Get("api_key")
		}
		if got != key {
			writeJSONError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// responseRecorder captures the status code for the request log and forwards
// Flush so SSE keeps streaming through the wrapper.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if a.metricsHandler != nil {
		a.metricsHandler.ServeHTTP(w, r)
		return
	}
	counts := a.Sessions.CountByState()
	states := make([]string, 0, len(counts))
	for s := range counts {
		states = append(states, s)
	}
	sort.Strings(states)
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	for _, s := range states {
		_, _ = fmt.Fprintf(w, "copilot_sessions_total{state=%q} %d\n", s, counts[s])
	}
}

func (a *App) apiConfig() models.Config {
	return models.Config{
		Home:            a.Home,
		StorageType:     a.Settings.StorageType,
		ExpirationHours: int(a.Settings.Expiration.Hours()),
		LLMEngine:       a.Settings.LLMEngine,
		LLMModel:        a.Settings.LLMModel,
	}
}

func (a *App) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, a.apiConfig())
}

func (a *App) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := a.Sessions.Stats(r.Context())
	if err != nil {
		writeJSONError(w, errorStatus(err), err.Error())
		return
	}
	sessions, err := a.Sessions.List(r.Context(), "")
	if err != nil {
		writeJSONError(w, errorStatus(err), err.Error())
		return
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	if len(sessions) > 10 {
		sessions = sessions[:10]
	}
	recent := make([]models.Session, 0, len(sessions))
	for _, sess := range sessions {
		recent = append(recent, toAPISession(sess))
	}
	writeJSON(w, http.StatusOK, models.Bootstrap{
		Config:   a.apiConfig(),
		Stats:    *stats,
		Recent:   recent,
		Profiles: listProfileUsers(a.Home),
	})
}

// listProfileUsers names every user directory carrying a profile.yaml.
func listProfileUsers(home string) []string {
	entries, err := os.ReadDir(filepath.Join(home, "users"))
	if err != nil {
		return nil
	}
	var users []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(home, "users", e.Name(), "profile.yaml")); err == nil {
			users = append(users, e.Name())
		}
	}
	return users
}

func (a *App) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			UserID   string         `json:"user_id"`
			Metadata map[string]any `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		sess, err := a.Sessions.Create(r.Context(), req.UserID, req.Metadata)
		if err != nil {
			writeJSONError(w, errorStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, toAPISession(sess))
	case http.MethodGet:
		state := r.URL.Query().Get("state")
		if state != "" && !models.ValidState(state) {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown state %q", state))
			return
		}
		sessions, err := a.Sessions.List(r.Context(), r.URL.Query().Get("user_id"))
		if err != nil {
			writeJSONError(w, errorStatus(err), err.Error())
			return
		}
		out := make([]models.Session, 0, len(sessions))
		for _, sess := range sessions {
			if state != "" && sess.State != state {
				continue
			}
			out = append(out, toAPISession(sess))
		}
		writeJSON(w, http.StatusOK, out)
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *App) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	if parts[0] == "" {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if parts[0] == "stats" && len(parts) == 1 {
		a.handleSessionStats(w, r)
		return
	}
	id := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			sess, err := a.Sessions.Get(r.Context(), id)
			if err != nil {
				writeJSONError(w, errorStatus(err), err.Error())
				return
			}
			writeJSON(w, http.StatusOK, toAPISession(sess))
		case http.MethodDelete:
			if err := a.Sessions.Delete(r.Context(), id); err != nil {
				writeJSONError(w, errorStatus(err), err.Error())
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}
	if len(parts) != 2 {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}

	switch parts[1] {
	case "pause", "resume", "complete":
		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var sess *store.Session
		var err error
		switch parts[1] {
		case "pause":
			sess, err = a.Sessions.Pause(r.Context(), id)
		case "resume":
			sess, err = a.Sessions.Resume(r.Context(), id)
		case "complete":
			sess, err = a.Sessions.Complete(r.Context(), id)
		}
		if err != nil {
			writeJSONError(w, errorStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toAPISession(sess))
	case "artifacts":
		if r.Method != http.MethodGet {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		sess, err := a.Sessions.Get(r.Context(), id)
		if err != nil {
			writeJSONError(w, errorStatus(err), err.Error())
			return
		}
		out := make([]models.Artifact, 0, len(sess.Artifacts))
		for _, art := range sess.Artifacts {
			out = append(out, models.Artifact{Type: art.Type, Payload: art.Payload, Timestamp: art.Timestamp})
		}
		writeJSON(w, http.StatusOK, out)
	case "checkpoints":
		if r.Method != http.MethodGet {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		sess, err := a.Sessions.Get(r.Context(), id)
		if err != nil {
			writeJSONError(w, errorStatus(err), err.Error())
			return
		}
		out := make([]models.Checkpoint, 0, len(sess.Checkpoints))
		for _, cp := range sess.Checkpoints {
			out = append(out, toAPICheckpoint(cp))
		}
		writeJSON(w, http.StatusOK, out)
	default:
		writeJSONError(w, http.StatusNotFound, "not found")
	}
}

func (a *App) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := a.Sessions.Stats(r.Context())
	if err != nil {
		writeJSONError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *App) handleInterviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req models.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := a.Orchestrator.Run(r.Context(), req)
	if err != nil {
		writeJSONError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *App) handleInterviewPhase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	phase := strings.TrimPrefix(r.URL.Path, "/interviews/")
	switch phase {
	case "research":
		var req struct {
			SessionID      string `json:"session_id"`
			UserID         string `json:"user_id"`
			CompanyName    string `json:"company_name"`
			JobDescription string `json:"job_description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		res, err := a.Orchestrator.RunResearch(r.Context(), req.SessionID, req.UserID, req.JobDescription, req.CompanyName)
		if err != nil {
			writeJSONError(w, errorStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	case "technical":
		var req struct {
			SessionID string                 `json:"session_id"`
			UserID    string                 `json:"user_id"`
			Technical *models.TechnicalInput `json:"technical"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Technical == nil {
			writeJSONError(w, http.StatusBadRequest, "technical input required")
			return
		}
		res, err := a.Orchestrator.RunTechnical(r.Context(), req.SessionID, req.UserID, *req.Technical)
		if err != nil {
			writeJSONError(w, errorStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	default:
		writeJSONError(w, http.StatusNotFound, "not found")
	}
}

func (a *App) handleQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	difficulty := q.Get("difficulty")
	tags := splitTags(q.Get("tag"))
	query := q.Get("q")

	var out []models.Question
	switch {
	case query != "":
		out = a.Bank.Search(query)
	case difficulty != "":
		if !models.ValidDifficulty(difficulty) {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown difficulty %q", difficulty))
			return
		}
		out = a.Bank.ByDifficultyAndTags(difficulty, tags)
	case len(tags) > 0:
		out = a.Bank.FilterByTags(tags)
	default:
		out = a.Bank.All()
	}
	if out == nil {
		out = []models.Question{}
	}
	writeJSON(w, http.StatusOK, out)
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (a *App) handleQuestionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/questions/")
	q := a.Bank.ByID(id)
	if q == nil {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("question %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *App) handleUsers(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/users/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	userID, resource := parts[0], parts[1]

	switch resource {
	case "plan":
		a.handlePlan(w, r, userID)
	case "journal":
		a.handleJournal(w, r, userID)
	case "profile":
		a.handleProfile(w, r, userID)
	case "progress":
		a.handleProgress(w, r, userID)
	default:
		writeJSONError(w, http.StatusNotFound, "not found")
	}
}

func (a *App) handlePlan(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		content, err := memory.ReadPlan(a.Home, userID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"user_id": userID, "content": content})
	case http.MethodPut:
		var req struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			writeJSONError(w, http.StatusBadRequest, "content is required")
			return
		}
		if err := memory.WritePlan(a.Home, userID, req.Content); err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"user_id": userID, "content": req.Content})
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *App) handleJournal(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	journal := &memory.Journal{Home: a.Home, UserID: userID}
	content, err := journal.Tail(r.Context(), limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": userID, "journal": content})
}

func (a *App) handleProfile(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		p, err := identity.LoadProfile(a.Home, userID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if p == nil {
			writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no profile for user %q", userID))
			return
		}
		writeJSON(w, http.StatusOK, models.Profile{
			Name:          p.Name,
			Email:         p.Email,
			TargetRole:    p.TargetRole,
			TargetCompany: p.TargetCompany,
		})
	case http.MethodPut:
		var req models.Profile
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		p := &identity.Profile{
			Name:          req.Name,
			Email:         req.Email,
			TargetRole:    req.TargetRole,
			TargetCompany: req.TargetCompany,
			Source:        "api",
		}
		if err := identity.SaveProfile(a.Home, userID, p); err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, req)
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *App) handleProgress(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	report := evaluation.Progress(userID, a.History.Scores(userID))
	writeJSON(w, http.StatusOK, report)
}

// toAPISession converts the persisted session into its API mirror.
func toAPISession(sess *store.Session) models.Session {
	out := models.Session{
		SessionID:   sess.SessionID,
		UserID:      sess.UserID,
		State:       sess.State,
		Metadata:    sess.Metadata,
		CreatedAt:   sess.CreatedAt,
		UpdatedAt:   sess.UpdatedAt,
		CompletedAt: sess.CompletedAt,
	}
	if len(sess.AgentStates) > 0 {
		out.AgentStates = make(map[string]models.AgentResult, len(sess.AgentStates))
		for name, st := range sess.AgentStates {
			out.AgentStates[name] = toAPIAgentResult(st)
		}
	}
	for _, art := range sess.Artifacts {
		out.Artifacts = append(out.Artifacts, models.Artifact{Type: art.Type, Payload: art.Payload, Timestamp: art.Timestamp})
	}
	for _, cp := range sess.Checkpoints {
		out.Checkpoints = append(out.Checkpoints, toAPICheckpoint(cp))
	}
	return out
}

func toAPIAgentResult(st *store.AgentState) models.AgentResult {
	out := models.AgentResult{
		AgentName:       st.AgentName,
		Success:         st.Success,
		Output:          st.Output,
		Metadata:        st.Metadata,
		ExecutionTimeMS: st.ExecutionTimeMS,
		TraceID:         st.TraceID,
		UpdatedAt:       st.UpdatedAt,
	}
	if st.Error != nil {
		out.Error = *st.Error
	}
	return out
}

func toAPICheckpoint(cp store.Checkpoint) models.Checkpoint {
	out := models.Checkpoint{
		CheckpointID: cp.CheckpointID,
		Label:        cp.Label,
		Timestamp:    cp.Timestamp,
	}
	out.Snapshot.State = cp.Snapshot.State
	if len(cp.Snapshot.AgentStates) > 0 {
		out.Snapshot.AgentStates = make(map[string]models.AgentResult, len(cp.Snapshot.AgentStates))
		for name, st := range cp.Snapshot.AgentStates {
			out.Snapshot.AgentStates[name] = toAPIAgentResult(st)
		}
	}
	return out
}

// errorStatus maps the session error taxonomy onto HTTP status codes.
func errorStatus(err error) int {
	var notFound *session.NotFoundError
	var state *session.StateError
	var validation *session.ValidationError
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &state):
		return http.StatusConflict
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
