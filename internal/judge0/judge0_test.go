package judge0

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/config"
	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

// fakeJudge0 answers submissions with canned stdout per stdin value.
func fakeJudge0(t *testing.T, outputs map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/submissions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("wait") != "true" || r.URL.Query().Get("base64_encoded") != "false" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		var payload struct {
			LanguageID int    `json:"language_id"`
			SourceCode string `json:"source_code"`
			Stdin      string `json:"stdin"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		fmt.Fprintf(w, `{"stdout": %q, "stderr": "", "time": "0.012", "status": {"id": 3, "description": "Accepted"}}`,
			outputs[payload.Stdin])
	}))
}

func TestRun_AllPassing(t *testing.T) {
	t.Parallel()

	srv := fakeJudge0(t, map[string]string{"1 2": "3\n", "2 2": "4\n"})
	defer srv.Close()

	client := New("test-key", srv.URL)
	tests := []models.TestCase{
		{Input: "1 2", ExpectedOutput: "3"},
		{Input: "2 2", ExpectedOutput: "4"},
	}
	result, err := client.Run(context.Background(), "print(sum(map(int, input().split())))", "python", tests)
	if err != nil {
		t.Fatalf("Run: %+v", err)
	}
	if result.Status != models.EvalStatusSuccess {
		t.Fatalf("status = %q, want success", result.Status)
	}
	if result.TestsPassed != 2 || result.TotalTests != 2 {
		t.Fatalf("passed %d/%d, want 2/2", result.TestsPassed, result.TotalTests)
	}
	if result.TestResults[0].ExecutionTime != 0.012 {
		t.Fatalf("ExecutionTime = %v", result.TestResults[0].ExecutionTime)
	}
	if result.ExecutionTimeMS != 24 {
		t.Fatalf("ExecutionTimeMS = %d, want 24", result.ExecutionTimeMS)
	}
}

func TestRun_GradesFailures(t *testing.T) {
	t.Parallel()

	srv := fakeJudge0(t, map[string]string{"1 2": "3\n", "2 2": "5\n"})
	defer srv.Close()

	client := New("test-key", srv.URL)
	tests := []models.TestCase{
		{Input: "1 2", ExpectedOutput: "3"},
		{Input: "2 2", ExpectedOutput: "4"},
	}
	result, err := client.Run(context.Background(), "broken", "python", tests)
	if err != nil {
		t.Fatalf("Run: %+v", err)
	}
	if result.Status != models.EvalStatusPartial {
		t.Fatalf("status = %q, want partial", result.Status)
	}
	if result.TestsPassed != 1 {
		t.Fatalf("TestsPassed = %d, want 1", result.TestsPassed)
	}
	second := result.TestResults[1]
	if second.Passed || second.TestCase != 2 || strings.TrimSpace(second.Actual) != "5" {
		t.Fatalf("unexpected second result: %+v", second)
	}
}

func TestRun_LanguageMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		language string
		want     int
	}{
		{"python", 71},
		{"JavaScript", 63},
		{"java", 62},
		{"cpp", 54},
		{"ruby", 71}, // unmapped languages fall back to Python 3
	}
	for _, tc := range cases {
		got := make(chan int, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var payload struct {
				LanguageID int `json:"language_id"`
			}
			json.NewDecoder(r.Body).Decode(&payload)
			got <- payload.LanguageID
			fmt.Fprint(w, `{"stdout": "", "time": "0"}`)
		}))

		client := New("test-key", srv.URL)
		_, err := client.Run(context.Background(), "code", tc.language, []models.TestCase{{Input: "x"}})
		srv.Close()
		if err != nil {
			t.Fatalf("Run(%s): %+v", tc.language, err)
		}
		if id := <-got; id != tc.want {
			t.Fatalf("language %q mapped to %d, want %d", tc.language, id, tc.want)
		}
	}
}

func TestRun_SendsRapidAPIHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-RapidAPI-Key") != "secret-key" {
			t.Errorf("X-RapidAPI-Key = %q", r.Header.Get("X-RapidAPI-Key"))
		}
		if r.Header.Get("X-RapidAPI-Host") == "" {
			t.Error("X-RapidAPI-Host not set")
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		fmt.Fprint(w, `{"stdout": "ok", "time": "0.01"}`)
	}))
	defer srv.Close()

	client := New("secret-key", srv.URL)
	_, err := client.Run(context.Background(), "code", "python", []models.TestCase{{Input: "a", ExpectedOutput: "ok"}})
	if err != nil {
		t.Fatalf("Run: %+v", err)
	}
}

func TestRun_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := New("test-key", srv.URL)
	_, err := client.Run(context.Background(), "code", "python", []models.TestCase{{Input: "a"}})
	if err == nil || !strings.Contains(err.Error(), "status 429") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestRun_StderrRecordedAsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"stdout": "", "stderr": "NameError: name 'x' is not defined", "time": "0.01"}`)
	}))
	defer srv.Close()

	client := New("test-key", srv.URL)
	result, err := client.Run(context.Background(), "print(x)", "python", []models.TestCase{{Input: "", ExpectedOutput: "1"}})
	if err != nil {
		t.Fatalf("Run: %+v", err)
	}
	if result.TestsPassed != 0 {
		t.Fatalf("TestsPassed = %d, want 0", result.TestsPassed)
	}
	if !strings.Contains(result.TestResults[0].Error, "NameError") {
		t.Fatalf("Error = %q", result.TestResults[0].Error)
	}
}

func TestFromSettings(t *testing.T) {
	t.Parallel()

	if c := FromSettings(&config.Settings{}); c != nil {
		t.Fatalf("expected nil client without api key, got %+v", c)
	}

	c := FromSettings(&config.Settings{Judge0APIKey: "k", Judge0URL: "https://judge0.example.com"})
	if c == nil || c.BaseURL != "https://judge0.example.com" {
		t.Fatalf("unexpected client: %+v", c)
	}

	if New("k", "").BaseURL != DefaultBaseURL {
		t.Fatal("empty base url should fall back to default")
	}
}
