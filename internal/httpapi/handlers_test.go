package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestHandlers exercises the question, config, bootstrap, and per-user routes.
func TestHandlers(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, ServerOptions{})
	ts := httptest.NewServer(app.Server.Handler)
	t.Cleanup(ts.Close)

	// config reflects the test settings
	cfgResp, _ := http.Get(ts.URL + "/config")
	if cfgResp.StatusCode != http.StatusOK {
		t.Fatalf("GET /config: %d", cfgResp.StatusCode)
	}
	var cfg map[string]any
	if err := json.NewDecoder(cfgResp.Body).Decode(&cfg); err != nil {
		t.Fatalf("decode /config: %v", err)
	}
	if cfg["storage_type"] != "file" || cfg["llm_engine"] != "off" {
		t.Fatalf("config: got %v", cfg)
	}

	// bootstrap carries config and stats
	bootResp, _ := http.Get(ts.URL + "/bootstrap")
	if bootResp.StatusCode != http.StatusOK {
		t.Fatalf("GET /bootstrap: %d", bootResp.StatusCode)
	}
	var boot map[string]any
	if err := json.NewDecoder(bootResp.Body).Decode(&boot); err != nil {
		t.Fatalf("decode /bootstrap: %v", err)
	}
	if boot["config"] == nil || boot["stats"] == nil {
		t.Fatalf("bootstrap missing config or stats: %v", boot)
	}

	// full embedded bank
	qResp, _ := http.Get(ts.URL + "/questions")
	var all []map[string]any
	if err := json.NewDecoder(qResp.Body).Decode(&all); err != nil {
		t.Fatalf("decode /questions: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 embedded questions, got %d", len(all))
	}

	// difficulty filter
	easyResp, _ := http.Get(ts.URL + "/questions?difficulty=easy")
	var easy []map[string]any
	_ = json.NewDecoder(easyResp.Body).Decode(&easy)
	if len(easy) != 2 {
		t.Fatalf("expected 2 easy questions, got %d", len(easy))
	}

	// unknown difficulty rejected
	badResp, _ := http.Get(ts.URL + "/questions?difficulty=impossible")
	if badResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("GET /questions?difficulty=impossible: %d", badResp.StatusCode)
	}

	// tag filter without difficulty
	tagResp, _ := http.Get(ts.URL + "/questions?tag=arrays")
	var tagged []map[string]any
	_ = json.NewDecoder(tagResp.Body).Decode(&tagged)
	if len(tagged) != 2 {
		t.Fatalf("expected 2 arrays questions, got %d", len(tagged))
	}

	// text search
	searchResp, _ := http.Get(ts.URL + "/questions?q=parentheses")
	var matches []map[string]any
	_ = json.NewDecoder(searchResp.Body).Decode(&matches)
	if len(matches) != 1 || matches[0]["id"] != "q2" {
		t.Fatalf("search parentheses: got %v", matches)
	}

	// by id
	oneResp, _ := http.Get(ts.URL + "/questions/q1")
	if oneResp.StatusCode != http.StatusOK {
		t.Fatalf("GET /questions/q1: %d", oneResp.StatusCode)
	}
	var q1 map[string]any
	_ = json.NewDecoder(oneResp.Body).Decode(&q1)
	if q1["title"] != "Two Sum" {
		t.Fatalf("q1: got %v", q1)
	}
	missingResp, _ := http.Get(ts.URL + "/questions/q999")
	if missingResp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET /questions/q999: %d", missingResp.StatusCode)
	}

	// metrics without an exporter falls back to the plain-text gauge
	metricsResp, _ := http.Get(ts.URL + "/metrics")
	if metricsResp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics: %d", metricsResp.StatusCode)
	}
}

func TestHandlers_userRoutes(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, ServerOptions{})
	ts := httptest.NewServer(app.Server.Handler)
	t.Cleanup(ts.Close)

	// default plan served before anything is written
	planResp, _ := http.Get(ts.URL + "/users/carol/plan")
	if planResp.StatusCode != http.StatusOK {
		t.Fatalf("GET plan: %d", planResp.StatusCode)
	}
	var plan struct {
		UserID  string `json:"user_id"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(planResp.Body).Decode(&plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if !strings.Contains(plan.Content, "# Interview Prep Plan") {
		t.Fatalf("default plan: got %q", plan.Content)
	}

	// write and read back
	putReq, _ := http.NewRequest(http.MethodPut, ts.URL+"/users/carol/plan",
		strings.NewReader(`{"content":"# My Plan\n\n- [ ] grind graphs\n"}`))
	putResp, _ := http.DefaultClient.Do(putReq)
	if putResp.StatusCode != http.StatusOK {
		t.Fatalf("PUT plan: %d", putResp.StatusCode)
	}
	again, _ := http.Get(ts.URL + "/users/carol/plan")
	var updated struct {
		Content string `json:"content"`
	}
	_ = json.NewDecoder(again.Body).Decode(&updated)
	if !strings.Contains(updated.Content, "grind graphs") {
		t.Fatalf("updated plan: got %q", updated.Content)
	}

	// blank plan content rejected
	blankReq, _ := http.NewRequest(http.MethodPut, ts.URL+"/users/carol/plan", strings.NewReader(`{"content":"  "}`))
	blankResp, _ := http.DefaultClient.Do(blankReq)
	if blankResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("PUT blank plan: %d", blankResp.StatusCode)
	}

	// empty journal reads as empty string
	jResp, _ := http.Get(ts.URL + "/users/carol/journal")
	if jResp.StatusCode != http.StatusOK {
		t.Fatalf("GET journal: %d", jResp.StatusCode)
	}
	var journal struct {
		Journal string `json:"journal"`
	}
	_ = json.NewDecoder(jResp.Body).Decode(&journal)
	if journal.Journal != "" {
		t.Fatalf("empty journal: got %q", journal.Journal)
	}
	badLimit, _ := http.Get(ts.URL + "/users/carol/journal?limit=minusone")
	if badLimit.StatusCode != http.StatusBadRequest {
		t.Fatalf("GET journal bad limit: %d", badLimit.StatusCode)
	}

	// profile: missing, then saved over the API
	missing, _ := http.Get(ts.URL + "/users/carol/profile")
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("GET missing profile: %d", missing.StatusCode)
	}
	saveReq, _ := http.NewRequest(http.MethodPut, ts.URL+"/users/carol/profile",
		strings.NewReader(`{"name":"Carol","target_role":"SRE","target_company":"Initech"}`))
	saveResp, _ := http.DefaultClient.Do(saveReq)
	if saveResp.StatusCode != http.StatusOK {
		t.Fatalf("PUT profile: %d", saveResp.StatusCode)
	}
	profResp, _ := http.Get(ts.URL + "/users/carol/profile")
	if profResp.StatusCode != http.StatusOK {
		t.Fatalf("GET profile: %d", profResp.StatusCode)
	}
	var prof map[string]any
	_ = json.NewDecoder(profResp.Body).Decode(&prof)
	if prof["name"] != "Carol" || prof["target_company"] != "Initech" {
		t.Fatalf("profile: got %v", prof)
	}

	// bootstrap now lists the profile's user directory
	bootResp, _ := http.Get(ts.URL + "/bootstrap")
	var boot struct {
		Profiles []string `json:"profiles"`
	}
	_ = json.NewDecoder(bootResp.Body).Decode(&boot)
	if len(boot.Profiles) != 1 || boot.Profiles[0] != "carol" {
		t.Fatalf("bootstrap profiles: got %v", boot.Profiles)
	}

	// progress with no history
	progResp, _ := http.Get(ts.URL + "/users/carol/progress")
	if progResp.StatusCode != http.StatusOK {
		t.Fatalf("GET progress: %d", progResp.StatusCode)
	}
	var prog map[string]any
	_ = json.NewDecoder(progResp.Body).Decode(&prog)
	if prog["trend"] != "no_data" {
		t.Fatalf("progress trend: got %v", prog["trend"])
	}

	// unknown user resource
	nope, _ := http.Get(ts.URL + "/users/carol/calendar")
	if nope.StatusCode != http.StatusNotFound {
		t.Fatalf("GET unknown user resource: %d", nope.StatusCode)
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, ServerOptions{APIKey: "secret"})
	ts := httptest.NewServer(app.Server.Handler)
	t.Cleanup(ts.Close)

	// /health and /metrics exempt
	healthResp, _ := http.Get(ts.URL + "/health")
	if healthResp != nil {
		defer func() { _ = healthResp.Body.Close() }()
	}
	if healthResp != nil && healthResp.StatusCode != http.StatusOK {
		t.Fatalf("GET /health without key: %d", healthResp.StatusCode)
	}
	metricsResp, _ := http.Get(ts.URL + "/metrics")
	if metricsResp != nil {
		defer func() { _ = metricsResp.Body.Close() }()
	}
	if metricsResp != nil && metricsResp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics without key: %d", metricsResp.StatusCode)
	}

	// /sessions without key -> 401
	noKey, _ := http.Get(ts.URL + "/sessions")
	if noKey != nil {
		defer func() { _ = noKey.Body.Close() }()
	}
	if noKey != nil && noKey.StatusCode != http.StatusUnauthorized {
		t.Fatalf("GET /sessions without key: %d", noKey.StatusCode)
	}

	// /sessions with X-API-Key -> 200
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/sessions", nil)
	req.Header.Set("X-API-Key", "secret")
	resp, _ := http.DefaultClient.Do(req)
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if resp != nil && resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /sessions with key: %d", resp.StatusCode)
	}

	// /sessions with query api_key -> 200 (EventSource cannot set headers)
	req2, _ := http.NewRequest(http.MethodGet, ts.URL+"/sessions?api_key=secret", nil)
	resp2, _ := http.DefaultClient.Do(req2)
	if resp2 != nil {
		defer func() { _ = resp2.Body.Close() }()
	}
	if resp2 != nil && resp2.StatusCode != http.StatusOK {
		t.Fatalf("GET /sessions with api_key query: %d", resp2.StatusCode)
	}

	// invalid key -> 401
	req3, _ := http.NewRequest(http.MethodGet, ts.URL+"/sessions", nil)
	req3.Header.Set("X-API-Key", "wrong")
	resp3, _ := http.DefaultClient.Do(req3)
	if resp3 != nil {
		defer func() { _ = resp3.Body.Close() }()
	}
	if resp3 != nil && resp3.StatusCode != http.StatusUnauthorized {
		t.Fatalf("GET /sessions with wrong key: %d", resp3.StatusCode)
	}
}
