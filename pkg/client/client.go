// Package client provides a Go SDK for the Copilot HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

// Client calls the Copilot HTTP API. It is safe for concurrent use.
type Client struct {
	BaseURL    string       // e.g. "http://localhost:8000"
	APIKey     string       // optional; sent as X-API-Key
	HTTPClient *http.Client // optional; nil uses http.DefaultClient
}

// New returns a client for the given base URL (e.g. "http://localhost:8000").
// APIKey is optional; when set, every request carries the X-API-Key header.
func New(baseURL, apiKey string) *Client {
	return &Client{BaseURL: baseURL, APIKey: apiKey}
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(b)
	}
	u := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
	return c.client().Do(req)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error != "" {
			return fmt.Errorf("api %s %s: %s", method, path, errBody.Error)
		}
		return fmt.Errorf("api %s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Health reports whether the server answers /health with status ok.
func (c *Client) Health(ctx context.Context) (ok bool, err error) {
	var out struct {
		Status string `json:"status"`
	}
	err = c.doJSON(ctx, http.MethodGet, "/health", nil, &out)
	return out.Status == "ok", err
}

// Config returns the /config response.
func (c *Client) Config(ctx context.Context) (*models.Config, error) {
	var out models.Config
	err := c.doJSON(ctx, http.MethodGet, "/config", nil, &out)
	return &out, err
}

// Bootstrap returns the full /bootstrap payload.
func (c *Client) Bootstrap(ctx context.Context) (*models.Bootstrap, error) {
	var out models.Bootstrap
	err := c.doJSON(ctx, http.MethodGet, "/bootstrap", nil, &out)
	return &out, err
}

// Stats returns session cache and storage counts.
func (c *Client) Stats(ctx context.Context) (*models.SessionStats, error) {
	var out models.SessionStats
	err := c.doJSON(ctx, http.MethodGet, "/sessions/stats", nil, &out)
	return &out, err
}

// CreateSession creates a session for the user and returns it.
func (c *Client) CreateSession(ctx context.Context, userID string, metadata map[string]any) (*models.Session, error) {
	body := map[string]any{"user_id": userID}
	if len(metadata) > 0 {
		body["metadata"] = metadata
	}
	var out models.Session
	err := c.doJSON(ctx, http.MethodPost, "/sessions", body, &out)
	return &out, err
}

// ListSessions returns sessions, optionally filtered by user and state.
func (c *Client) ListSessions(ctx context.Context, userID, state string) ([]models.Session, error) {
	q := url.Values{}
	if userID != "" {
		q.Set("user_id", userID)
	}
	if state != "" {
		q.Set("state", state)
	}
	path := "/sessions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []models.Session
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// GetSession returns one session by ID.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var out models.Session
	err := c.doJSON(ctx, http.MethodGet, "/sessions/"+url.PathEscape(sessionID), nil, &out)
	return &out, err
}

// DeleteSession deletes a session by ID.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(sessionID), nil, nil)
}

// PauseSession pauses a created or running session.
func (c *Client) PauseSession(ctx context.Context, sessionID string) (*models.Session, error) {
	return c.sessionAction(ctx, sessionID, "pause")
}

// ResumeSession moves a paused session back to running.
func (c *Client) ResumeSession(ctx context.Context, sessionID string) (*models.Session, error) {
	return c.sessionAction(ctx, sessionID, "resume")
}

// CompleteSession finishes a session.
func (c *Client) CompleteSession(ctx context.Context, sessionID string) (*models.Session, error) {
	return c.sessionAction(ctx, sessionID, "complete")
}

func (c *Client) sessionAction(ctx context.Context, sessionID, action string) (*models.Session, error) {
	var out models.Session
	err := c.doJSON(ctx, http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/"+action, nil, &out)
	return &out, err
}

// Artifacts returns a session's artifacts.
func (c *Client) Artifacts(ctx context.Context, sessionID string) ([]models.Artifact, error) {
	var out []models.Artifact
	err := c.doJSON(ctx, http.MethodGet, "/sessions/"+url.PathEscape(sessionID)+"/artifacts", nil, &out)
	return out, err
}

// Checkpoints returns a session's checkpoints.
func (c *Client) Checkpoints(ctx context.Context, sessionID string) ([]models.Checkpoint, error) {
	var out []models.Checkpoint
	err := c.doJSON(ctx, http.MethodGet, "/sessions/"+url.PathEscape(sessionID)+"/checkpoints", nil, &out)
	return out, err
}

// RunInterview runs the full workflow (research, technical, companion).
func (c *Client) RunInterview(ctx context.Context, req models.RunRequest) (*models.RunResult, error) {
	var out models.RunResult
	err := c.doJSON(ctx, http.MethodPost, "/interviews", req, &out)
	return &out, err
}

// RunResearch runs only the research phase against an existing session.
func (c *Client) RunResearch(ctx context.Context, sessionID, userID, companyName, jobDescription string) (*models.AgentResult, error) {
	body := map[string]string{
		"session_id":      sessionID,
		"user_id":         userID,
		"company_name":    companyName,
		"job_description": jobDescription,
	}
	var out models.AgentResult
	err := c.doJSON(ctx, http.MethodPost, "/interviews/research", body, &out)
	return &out, err
}

// RunTechnical runs only the technical phase against an existing session.
func (c *Client) RunTechnical(ctx context.Context, sessionID, userID string, in models.TechnicalInput) (*models.AgentResult, error) {
	body := map[string]any{
		"session_id": sessionID,
		"user_id":    userID,
		"technical":  in,
	}
	var out models.AgentResult
	err := c.doJSON(ctx, http.MethodPost, "/interviews/technical", body, &out)
	return &out, err
}

// ListQuestions filters the question bank. All arguments are optional; a
// non-empty query wins over difficulty and tags.
func (c *Client) ListQuestions(ctx context.Context, difficulty string, tags []string, query string) ([]models.Question, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	if difficulty != "" {
		q.Set("difficulty", difficulty)
	}
	if len(tags) > 0 {
		q.Set("tag", strings.Join(tags, ","))
	}
	path := "/questions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []models.Question
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// GetQuestion returns one question by ID.
func (c *Client) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	var out models.Question
	err := c.doJSON(ctx, http.MethodGet, "/questions/"+url.PathEscape(id), nil, &out)
	return &out, err
}

// Plan returns the user's prep plan markdown.
func (c *Client) Plan(ctx context.Context, userID string) (string, error) {
	var out struct {
		Content string `json:"content"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/plan", nil, &out)
	return out.Content, err
}

// SavePlan replaces the user's prep plan markdown.
func (c *Client) SavePlan(ctx context.Context, userID, content string) error {
	return c.doJSON(ctx, http.MethodPut, "/users/"+url.PathEscape(userID)+"/plan",
		map[string]string{"content": content}, nil)
}

// Journal returns the last limit session entries of the user's journal
// (limit 0 = everything).
func (c *Client) Journal(ctx context.Context, userID string, limit int) (string, error) {
	path := "/users/" + url.PathEscape(userID) + "/journal"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Journal string `json:"journal"`
	}
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out.Journal, err
}

// Profile returns the user's saved profile.
func (c *Client) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	var out models.Profile
	err := c.doJSON(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/profile", nil, &out)
	return &out, err
}

// SaveProfile stores the user's profile.
func (c *Client) SaveProfile(ctx context.Context, userID string, p models.Profile) error {
	return c.doJSON(ctx, http.MethodPut, "/users/"+url.PathEscape(userID)+"/profile", p, nil)
}

// Progress returns the user's success-rate trend across sessions.
func (c *Client) Progress(ctx context.Context, userID string) (*models.ProgressReport, error) {
	var out models.ProgressReport
	err := c.doJSON(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/progress", nil, &out)
	return &out, err
}
