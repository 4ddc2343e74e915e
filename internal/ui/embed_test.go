package ui

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler(t *testing.T) {
	h := Handler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /: status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Interview Copilot") {
		t.Fatal("GET /: status page missing title")
	}
}

func TestHandler_fallback(t *testing.T) {
	h := Handler()
	req := httptest.NewRequest(http.MethodGet, "/sessions/abc123", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	// Unknown paths serve index.html with 200, not a redirect.
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /sessions/abc123 (fallback): status=%d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("fallback: empty body")
	}
}
