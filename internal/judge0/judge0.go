// Package judge0 runs code submissions against a Judge0 CE instance and
// grades stdout against each test case's expected output.
package judge0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/config"
	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

// DefaultBaseURL is the hosted Judge0 CE endpoint on RapidAPI.
const DefaultBaseURL = "https://judge0-ce.p.rapidapi.com"

// languageIDs maps submission languages to Judge0 language identifiers.
var languageIDs = map[string]int{
	"python":     71,
	"javascript": 63,
	"java":       62,
	"cpp":        54,
}

const defaultLanguageID = 71 // Python 3

// Client submits code to a Judge0 instance. The zero HTTPClient gets a 30s
// timeout; each test case is one synchronous submission.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// New builds a client for the given instance. An empty baseURL falls back to
// the hosted endpoint.
func New(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{BaseURL: baseURL, APIKey: apiKey}
}

// FromSettings returns a configured client, or nil when no API key is set.
// Without a client, submissions are evaluated with zero tests run.
func FromSettings(cfg *config.Settings) *Client {
	if cfg.Judge0APIKey == "" {
		slog.Warn("JUDGE0_API_KEY not set, code execution disabled")
		return nil
	}
	return New(cfg.Judge0APIKey, cfg.Judge0URL)
}

// Run executes code once per test case. A test passes when trimmed stdout
// matches the trimmed expected output.
func (c *Client) Run(ctx context.Context, code, language string, tests []models.TestCase) (*models.ExecutionResult, error) {
	languageID, ok := languageIDs[strings.ToLower(language)]
	if !ok {
		languageID = defaultLanguageID
	}

	result := &models.ExecutionResult{
		TotalTests:  len(tests),
		TestResults: make([]models.TestRunResult, 0, len(tests)),
	}
	totalTime := 0.0
	for i, tc := range tests {
		sub, err := c.submit(ctx, code, languageID, tc.Input)
		if err != nil {
			return nil, err
		}
		passed := strings.TrimSpace(sub.Stdout) == strings.TrimSpace(tc.ExpectedOutput)
		if passed {
			result.TestsPassed++
		}
		seconds, _ := strconv.ParseFloat(sub.Time, 64)
		totalTime += seconds

		run := models.TestRunResult{
			TestCase:      i + 1,
			Passed:        passed,
			Input:         tc.Input,
			Expected:      tc.ExpectedOutput,
			Actual:        sub.Stdout,
			ExecutionTime: seconds,
		}
		if sub.Stderr != "" {
			run.Error = sub.Stderr
		} else if sub.CompileOutput != "" {
			run.Error = sub.CompileOutput
		}
		result.TestResults = append(result.TestResults, run)
	}

	result.ExecutionTimeMS = int64(totalTime * 1000)
	result.Status = models.EvalStatusPartial
	if result.TestsPassed == result.TotalTests {
		result.Status = models.EvalStatusSuccess
	}
	return result, nil
}

type submission struct {
	Stdout        string `json:"stdout"`
	Stderr        string `json:"stderr"`
	CompileOutput string `json:"compile_output"`
	Message       string `json:"message"`
	Time          string `json:"time"`
	Status        struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
}

func (c *Client) submit(ctx context.Context, code string, languageID int, stdin string) (*submission, error) {
	body, err := json.Marshal(map[string]any{
		"language_id": languageID,
		"source_code": code,
		"stdin":       stdin,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal judge0 request: %w", err)
	}

	endpoint := strings.TrimSuffix(c.BaseURL, "/") + "/submissions?base64_encoded=false&wait=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create judge0 request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.APIKey)
		if host := hostOf(c.BaseURL); host != "" {
			req.Header.Set("X-RapidAPI-Host", host)
		}
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call judge0 api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("judge0 api returned status %d", resp.StatusCode)
	}
	var sub submission
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return nil, fmt.Errorf("decode judge0 response: %w", err)
	}
	return &sub, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
